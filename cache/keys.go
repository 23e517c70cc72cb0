package cache

import "fmt"

// Key builders. Everything derived from a user's resources lives under
// UserPrefix(id) and everything derived from a project under
// ProjectPrefix(id), so invalidation is a prefix purge.

func UserPrefix(userID uint) string {
	return fmt.Sprintf("user:%d:", userID)
}

func UserStatsKey(userID uint) string {
	return UserPrefix(userID) + "stats"
}

func UserRecentProjectsKey(userID uint, limit int) string {
	return fmt.Sprintf("%srecent_projects:%d", UserPrefix(userID), limit)
}

func UserRecentTeamsKey(userID uint, limit int) string {
	return fmt.Sprintf("%srecent_teams:%d", UserPrefix(userID), limit)
}

func UserRecentTasksKey(userID uint, limit int) string {
	return fmt.Sprintf("%srecent_tasks:%d", UserPrefix(userID), limit)
}

func ProjectPrefix(projectID uint) string {
	return fmt.Sprintf("project:%d:", projectID)
}

func ProjectStatsKey(projectID uint) string {
	return ProjectPrefix(projectID) + "stats"
}
