// Package models defines server-side data models shared by repositories,
// services and transports.
package models

import "time"

// ImageUpload instructs an admin client to PUT an event image to object
// storage using a presigned URL.
type ImageUpload struct {
	// EventID identifies the event the image belongs to.
	EventID string
	// Key is the object-storage key the image will be stored under.
	Key string
	// URL is a temporary presigned HTTP URL accepting a PUT of the image.
	URL string
	// ExpiresAt is when URL stops being accepted.
	ExpiresAt time.Time
}
