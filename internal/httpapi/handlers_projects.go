package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/gin-gonic/gin"
)

type createProjectRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	TechStack     string `json:"tech_stack"`
	Impact        string `json:"impact"`
	RepositoryURL string `json:"repository_url"`
}

type reviewProjectRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (server *Server) handleCreateProject(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	var request createProjectRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "expected JSON body"))
		return
	}
	project, err := server.projects.Create(ctx.Request.Context(), loppet.NewProject{
		CreatorID:     actorID,
		Title:         request.Title,
		Description:   request.Description,
		Category:      request.Category,
		TechStack:     request.TechStack,
		Impact:        request.Impact,
		RepositoryURL: request.RepositoryURL,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, toProjectPayload(project))
}

func (server *Server) handleListApprovedProjects(ctx *gin.Context) {
	projects, err := server.projects.ListApproved(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"projects": toProjectPayloads(projects)})
}

func (server *Server) handleListMyProjects(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	projects, err := server.projects.ListMine(ctx.Request.Context(), actorID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"projects": toProjectPayloads(projects)})
}

func (server *Server) handleGetProject(ctx *gin.Context) {
	projectID, err := loppet.NewProjectID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	project, err := server.projects.GetVisible(ctx.Request.Context(), server.actor(ctx), projectID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toProjectPayload(project))
}

func (server *Server) handlePendingProjects(ctx *gin.Context) {
	projects, err := server.projects.ListPending(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"projects": toProjectPayloads(projects)})
}

func (server *Server) handleReviewProject(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	projectID, err := loppet.NewProjectID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	var request reviewProjectRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "expected JSON body"))
		return
	}
	project, err := server.projects.Review(ctx.Request.Context(), actorID, projectID, request.Approve, request.Reason)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toProjectPayload(project))
}

func (server *Server) handleProjectMembers(ctx *gin.Context) {
	projectID, err := loppet.NewProjectID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	members, err := server.projects.Members(ctx.Request.Context(), projectID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	payloads := make([]accountSummaryPayload, 0, len(members))
	for _, member := range members {
		payloads = append(payloads, toAccountSummaryPayload(member))
	}
	ctx.JSON(http.StatusOK, gin.H{"members": payloads})
}

func (server *Server) handleJoinProject(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	projectID, err := loppet.NewProjectID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	if err := server.projects.Join(ctx.Request.Context(), actorID, projectID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (server *Server) handleLeaveProject(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	projectID, err := loppet.NewProjectID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	if err := server.projects.Leave(ctx.Request.Context(), actorID, projectID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "left"})
}
