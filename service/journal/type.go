package journal

import "github.com/khaledhikmat/vg-go/model"

// IService keeps a durable record of accepted announcements.
type IService interface {
	Record(a model.Announcement) error
	// Recent returns up to n announcements, newest first.
	Recent(n int) ([]model.Announcement, error)
	Close() error
}
