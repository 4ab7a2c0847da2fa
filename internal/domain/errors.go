// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrSessionExists indicates an agent already has a live process or container session.
var ErrSessionExists = errors.New("session already exists for agent")

// ErrSystemSchedule indicates an attempt to delete a built-in system schedule.
var ErrSystemSchedule = errors.New("system schedules cannot be deleted")
