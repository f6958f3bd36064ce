package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"gorm.io/gorm"
)

func (store *Store) CreateProject(ctx context.Context, input loppet.NewProject) (loppet.Project, error) {
	row := Project{
		CreatorID:     input.CreatorID.String(),
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		TechStack:     input.TechStack,
		Impact:        input.Impact,
		RepositoryURL: input.RepositoryURL,
		Status:        loppet.ProjectStatusPending.String(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return loppet.Project{}, wrapStoreError(errorSubjectProject, errorCodeCreate, err)
	}
	return mapProject(row)
}

func (store *Store) GetProject(ctx context.Context, projectID loppet.ProjectID) (loppet.Project, error) {
	var row Project
	err := store.db.WithContext(ctx).
		Where("project_id = ?", projectID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loppet.Project{}, wrapStoreError(errorSubjectProject, errorCodeGet, loppet.ErrProjectNotFound)
		}
		return loppet.Project{}, wrapStoreError(errorSubjectProject, errorCodeGet, err)
	}
	return mapProject(row)
}

func (store *Store) ListProjectsByStatus(ctx context.Context, status loppet.ProjectStatus) ([]loppet.Project, error) {
	var rows []Project
	err := store.db.WithContext(ctx).
		Where("status = ?", status.String()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectProject, errorCodeList, err)
	}
	return mapProjects(rows)
}

func (store *Store) ListProjectsByCreator(ctx context.Context, creatorID loppet.AccountID) ([]loppet.Project, error) {
	var rows []Project
	err := store.db.WithContext(ctx).
		Where("creator_id = ?", creatorID.String()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectProject, errorCodeList, err)
	}
	return mapProjects(rows)
}

// TransitionProjectStatus performs the moderation transition as a single
// conditional write; losing a duplicate-review race reports ErrAlreadyReviewed.
func (store *Store) TransitionProjectStatus(ctx context.Context, projectID loppet.ProjectID, from loppet.ProjectStatus, to loppet.ProjectStatus, reason string) error {
	result := store.db.WithContext(ctx).
		Model(&Project{}).
		Where("project_id = ? AND status = ?", projectID.String(), from.String()).
		Updates(map[string]any{
			"status":           to.String(),
			"rejection_reason": reason,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectProject, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectProject, errorCodeUpdate, loppet.ErrAlreadyReviewed)
	}
	return nil
}

func (store *Store) CreateMembership(ctx context.Context, accountID loppet.AccountID, projectID loppet.ProjectID) error {
	row := ProjectMembership{
		AccountID: accountID.String(),
		ProjectID: projectID.String(),
		CreatedAt: time.Now().UTC(),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err, "") {
		return wrapStoreError(errorSubjectMembership, errorCodeDuplicate, loppet.ErrAlreadyMember)
	}
	if err != nil {
		return wrapStoreError(errorSubjectMembership, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) DeleteMembership(ctx context.Context, accountID loppet.AccountID, projectID loppet.ProjectID) (bool, error) {
	result := store.db.WithContext(ctx).
		Where("account_id = ? AND project_id = ?", accountID.String(), projectID.String()).
		Delete(&ProjectMembership{})
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectMembership, errorCodeDelete, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) ListMembers(ctx context.Context, projectID loppet.ProjectID) ([]loppet.AccountSummary, error) {
	var rows []Account
	err := store.db.WithContext(ctx).
		Joins("JOIN project_memberships ON project_memberships.account_id = accounts.account_id").
		Where("project_memberships.project_id = ?", projectID.String()).
		Order("project_memberships.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectMembership, errorCodeList, err)
	}
	members := make([]loppet.AccountSummary, 0, len(rows))
	for _, row := range rows {
		account, err := mapAccount(row)
		if err != nil {
			return nil, err
		}
		members = append(members, account.Summary())
	}
	return members, nil
}

func mapProjects(rows []Project) ([]loppet.Project, error) {
	projects := make([]loppet.Project, 0, len(rows))
	for _, row := range rows {
		project, err := mapProject(row)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func mapProject(row Project) (loppet.Project, error) {
	projectID, err := loppet.NewProjectID(row.ProjectID)
	if err != nil {
		return loppet.Project{}, wrapStoreError(errorSubjectProject, errorCodeInvalid, err)
	}
	creatorID, err := loppet.NewAccountID(row.CreatorID)
	if err != nil {
		return loppet.Project{}, wrapStoreError(errorSubjectProject, errorCodeInvalid, err)
	}
	status, err := loppet.ParseProjectStatus(row.Status)
	if err != nil {
		return loppet.Project{}, wrapStoreError(errorSubjectProject, errorCodeInvalid, err)
	}
	return loppet.Project{
		ID:              projectID,
		CreatorID:       creatorID,
		Title:           row.Title,
		Description:     row.Description,
		Category:        row.Category,
		TechStack:       row.TechStack,
		Impact:          row.Impact,
		RepositoryURL:   row.RepositoryURL,
		Status:          status,
		RejectionReason: row.RejectionReason,
		CreatedAt:       row.CreatedAt,
	}, nil
}
