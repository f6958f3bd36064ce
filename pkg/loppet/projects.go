package loppet

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	maxProjectTitleLength = 120

	operationCreateProject = "create_project"
	operationReviewProject = "review_project"
	operationJoinProject   = "join_project"
	operationLeaveProject  = "leave_project"

	subjectProject    = "project"
	subjectMembership = "membership"
)

// ProjectService contains the project, moderation, and membership domain
// logic over a Store.
type ProjectService struct {
	store   Store
	nowFn   func() time.Time
	logging operationLogging
}

// NewProjectService wires a ProjectService.
func NewProjectService(store Store, now func() time.Time, options ...ServiceOption) (*ProjectService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &ProjectService{store: store, nowFn: now}
	service.logging.applyOptions(options)
	return service, nil
}

// Create submits a new project; every submission starts PENDING.
func (service *ProjectService) Create(ctx context.Context, input NewProject) (Project, error) {
	var project Project
	operationError := validateProjectInput(input)
	if operationError == nil {
		project, operationError = service.store.CreateProject(ctx, input)
	}
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationCreateProject,
		ActorID:   input.CreatorID,
		Subject:   subjectProject,
		SubjectID: project.ID.String(),
		Error:     operationError,
	})
	return project, operationError
}

// GetVisible fetches a project the actor is allowed to see: APPROVED for
// everyone, anything for the creator. Others get ErrProjectNotFound.
func (service *ProjectService) GetVisible(ctx context.Context, actor Actor, projectID ProjectID) (Project, error) {
	project, err := service.store.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	if project.Status == ProjectStatusApproved {
		return project, nil
	}
	if actorID, present := actor.ID(); present && project.CreatorID == actorID {
		return project, nil
	}
	return Project{}, ErrProjectNotFound
}

// ListApproved returns the public project directory.
func (service *ProjectService) ListApproved(ctx context.Context) ([]Project, error) {
	return service.store.ListProjectsByStatus(ctx, ProjectStatusApproved)
}

// ListMine returns the actor's own submissions in any state.
func (service *ProjectService) ListMine(ctx context.Context, actorID AccountID) ([]Project, error) {
	return service.store.ListProjectsByCreator(ctx, actorID)
}

// ListPending returns the moderation queue. Admin gating happens at the
// transport boundary.
func (service *ProjectService) ListPending(ctx context.Context) ([]Project, error) {
	return service.store.ListProjectsByStatus(ctx, ProjectStatusPending)
}

// Review transitions a PENDING project to APPROVED or REJECTED exactly once.
// Rejection requires a non-empty reason; approval clears any reason. The
// transition is a conditional write, so a concurrent duplicate review fails
// with ErrAlreadyReviewed instead of overwriting the terminal state.
func (service *ProjectService) Review(ctx context.Context, reviewerID AccountID, projectID ProjectID, approve bool, reason string) (Project, error) {
	project, operationError := service.review(ctx, projectID, approve, reason)
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationReviewProject,
		ActorID:   reviewerID,
		Subject:   subjectProject,
		SubjectID: projectID.String(),
		Status:    project.Status.String(),
		Error:     operationError,
	})
	return project, operationError
}

func (service *ProjectService) review(ctx context.Context, projectID ProjectID, approve bool, reason string) (Project, error) {
	reason = strings.TrimSpace(reason)
	target := ProjectStatusApproved
	if approve {
		reason = ""
	} else {
		target = ProjectStatusRejected
		if reason == "" {
			return Project{}, ErrReasonRequired
		}
	}
	project, err := service.store.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	if project.Status != ProjectStatusPending {
		return project, ErrAlreadyReviewed
	}
	if err := service.store.TransitionProjectStatus(ctx, projectID, ProjectStatusPending, target, reason); err != nil {
		return Project{}, err
	}
	return service.store.GetProject(ctx, projectID)
}

// Join adds the actor to an APPROVED project's member list. Pending and
// rejected projects are indistinguishable from absent ones.
func (service *ProjectService) Join(ctx context.Context, actorID AccountID, projectID ProjectID) error {
	operationError := service.join(ctx, actorID, projectID)
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationJoinProject,
		ActorID:   actorID,
		Subject:   subjectMembership,
		SubjectID: projectID.String(),
		Error:     operationError,
	})
	return operationError
}

func (service *ProjectService) join(ctx context.Context, actorID AccountID, projectID ProjectID) error {
	project, err := service.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Status != ProjectStatusApproved {
		return ErrProjectNotFound
	}
	return service.store.CreateMembership(ctx, actorID, projectID)
}

// Leave removes the actor's membership row.
func (service *ProjectService) Leave(ctx context.Context, actorID AccountID, projectID ProjectID) error {
	operationError := service.leave(ctx, actorID, projectID)
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationLeaveProject,
		ActorID:   actorID,
		Subject:   subjectMembership,
		SubjectID: projectID.String(),
		Error:     operationError,
	})
	return operationError
}

func (service *ProjectService) leave(ctx context.Context, actorID AccountID, projectID ProjectID) error {
	deleted, err := service.store.DeleteMembership(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotMember
	}
	return nil
}

// Members lists the member accounts of an APPROVED project.
func (service *ProjectService) Members(ctx context.Context, projectID ProjectID) ([]AccountSummary, error) {
	project, err := service.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != ProjectStatusApproved {
		return nil, ErrProjectNotFound
	}
	return service.store.ListMembers(ctx, projectID)
}

func validateProjectInput(input NewProject) error {
	if strings.TrimSpace(input.Title) == "" || len([]rune(input.Title)) > maxProjectTitleLength {
		return fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidProjectInput, maxProjectTitleLength)
	}
	if strings.TrimSpace(input.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidProjectInput)
	}
	if strings.TrimSpace(input.RepositoryURL) == "" {
		return fmt.Errorf("%w: repository url is required", ErrInvalidProjectInput)
	}
	return nil
}
