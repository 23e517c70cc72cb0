package authz

import "context"

// ownershipResolver answers structural questions about a user and a concrete
// resource instance: is-owner, is-creator, is-assignee, and the team-derived
// project access rules. Absent or dangling references yield false, never errors.
type ownershipResolver struct {
	store Store
}

// isOwner reports whether the user owns the team or project (or, for tasks,
// created it — the creator is the task's owner-equivalent).
func (o ownershipResolver) isOwner(ctx context.Context, resource Resource, id, userID uint) (bool, error) {
	ownerID, err := o.store.OwnerOf(ctx, resource, id)
	if err != nil {
		return false, err
	}
	return ownerID != 0 && ownerID == userID, nil
}

// isAssigned reports whether the user appears in the task's assignee set.
func (o ownershipResolver) isAssigned(ctx context.Context, taskID, userID uint) (bool, error) {
	assignees, err := o.store.AssigneesOf(ctx, taskID)
	if err != nil {
		return false, err
	}
	for _, id := range assignees {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// isTeamOwnerOfProject reports whether the user owns any team the project is
// linked to. Owning a team grants access to its projects.
func (o ownershipResolver) isTeamOwnerOfProject(ctx context.Context, projectID, userID uint) (bool, error) {
	teamIDs, err := o.store.TeamsOfProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	for _, teamID := range teamIDs {
		ownerID, err := o.store.OwnerOf(ctx, ResourceTeam, teamID)
		if err != nil {
			return false, err
		}
		if ownerID != 0 && ownerID == userID {
			return true, nil
		}
	}
	return false, nil
}

// ownsAnyProjectOf reports whether the user owns any project linked to the
// team. This is the symmetric rule that lets project owners see the teams
// their projects belong to.
func (o ownershipResolver) ownsAnyProjectOf(ctx context.Context, teamID, userID uint) (bool, error) {
	projectIDs, err := o.store.ProjectsOfTeam(ctx, teamID)
	if err != nil {
		return false, err
	}
	for _, projectID := range projectIDs {
		ownerID, err := o.store.OwnerOf(ctx, ResourceProject, projectID)
		if err != nil {
			return false, err
		}
		if ownerID != 0 && ownerID == userID {
			return true, nil
		}
	}
	return false, nil
}
