package jobs

import "time"

// EstimateDuration computes a non-binding duration hint for a job, derived
// from content length and requested item count. It is returned to the caller
// at creation time purely as a UX hint and has no effect on scheduling.
func EstimateDuration(t Type, contentLength, itemCount int) time.Duration {
	var base, perKB, perItem time.Duration

	switch t {
	case TypeFileUpload:
		base, perKB = 2*time.Second, 50*time.Millisecond
	case TypeSummary:
		base, perKB = 5*time.Second, 200*time.Millisecond
	case TypeMultiSummary:
		base, perKB, perItem = 5*time.Second, 200*time.Millisecond, 4*time.Second
	case TypeExam:
		base, perKB, perItem = 8*time.Second, 150*time.Millisecond, 2*time.Second
	case TypeQuestions:
		base, perKB, perItem = 6*time.Second, 150*time.Millisecond, 2*time.Second
	default:
		base = 5 * time.Second
	}

	est := base + perKB*time.Duration(contentLength/1024) + perItem*time.Duration(itemCount)

	// Keep the hint within sane bounds for the UI.
	if est < time.Second {
		est = time.Second
	}
	if est > 5*time.Minute {
		est = 5 * time.Minute
	}
	return est
}
