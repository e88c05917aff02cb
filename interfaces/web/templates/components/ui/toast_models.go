package ui

import "time"

// ToastNotificationView represents the view model for a toast notification with rich details.
type ToastNotificationView struct {
	Title     string
	Message   string
	Type      string
	JobType   string
	Duration  string
	EntityID  int
	Stats     []ToastStat
	Timestamp time.Time
}

// ToastStat is one labelled counter shown on a job toast.
type ToastStat struct {
	Label string
	Value int
	Alert bool
}
