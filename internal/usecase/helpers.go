package usecase

import "time"

func stringRef(s string) *string {
	return &s
}

func optionalRef(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
