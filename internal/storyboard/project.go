package storyboard

import "time"

// QualityLevel buckets an overall quality score for display.
type QualityLevel string

const (
	QualityGreen  QualityLevel = "green"
	QualityYellow QualityLevel = "yellow"
	QualityRed    QualityLevel = "red"
)

// Project is one narration script on its way to a storyboard. The raw
// script is immutable once optimization starts; auto-optimize replaces it
// wholesale before re-segmentation.
type Project struct {
	ID             string
	OwnerID        string
	Title          string
	Script         string
	Status         Status
	QualityOverall *int
	QualityLevel   QualityLevel
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
