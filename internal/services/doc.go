// Package services defines the shared error taxonomy for the intake pipeline.
package services
