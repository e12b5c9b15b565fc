package utils

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

func StringPtr(s string) *string {
	return &s
}

func BoolPtr(b bool) *bool {
	return &b
}

func IntPtr(i int) *int {
	return &i
}
