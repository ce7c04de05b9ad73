package domain

import "time"

// Receipt is the local record of a completed purchase submission, journaled
// on the lane so a day's transactions survive the process.
type Receipt struct {
	ID           string
	EmployeeCode string
	Total        int64
	Lines        []CartItem
	CreatedAt    time.Time
}
