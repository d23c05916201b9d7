// Package repository содержит репозитории сущностей поверх хранилища ключ-значение.
package repository

// Пространства имен хранилища.
const (
	NamespaceWarnings       = "warnings"
	NamespaceSchedule       = "schedule"
	NamespaceChats          = "chats"
	NamespaceAutoSettings   = "auto_settings"
	NamespaceGroupIntervals = "group_intervals"
)
