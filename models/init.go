package models

// All lists every persisted model in dependency order for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&ProjectOwner{},
		&Sprint{},
		&Category{},
		&Tag{},
		&TaskItem{},
		&TaskAssignment{},
		&TaskTag{},
		&SubTask{},
		&SubTaskAssignment{},
		&SubTaskTag{},
		&Comment{},
		&Attachment{},
		&TimeLog{},
		&Notification{},
		&ActivityLog{},
	}
}
