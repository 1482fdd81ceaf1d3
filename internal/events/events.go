// Package events defines the domain events emitted while recording authentication
// activity, and the sinks that deliver them.
package events

import (
	"context"

	"github.com/BradenHooton/authtrail/internal/models"
)

// Topic names
const (
	TopicDeviceCreated = "device.created"
	TopicLoginCreated  = "login.created"
	TopicFailedAuth    = "auth.failed"
	TopicLockoutAuth   = "auth.lockout"
)

// AllTopics lists every topic in emission order of a first-seen login
var AllTopics = []string{TopicDeviceCreated, TopicLoginCreated, TopicFailedAuth, TopicLockoutAuth}

// Event is implemented by every domain event
type Event interface {
	Topic() string
	UserID() string
}

// DeviceCreated is emitted once per new device. Pin is the plaintext verification
// code and is never serialized.
type DeviceCreated struct {
	Device *models.Device `json:"device"`
	Pin    string         `json:"-"`
}

func (e DeviceCreated) Topic() string  { return TopicDeviceCreated }
func (e DeviceCreated) UserID() string { return e.Device.UserID }

// LoginCreated is emitted after a successful login is persisted
type LoginCreated struct {
	Login *models.Login `json:"login"`
}

func (e LoginCreated) Topic() string  { return TopicLoginCreated }
func (e LoginCreated) UserID() string { return e.Login.UserID }

// FailedAuth is emitted after a failed attempt is persisted
type FailedAuth struct {
	Login  *models.Login  `json:"login"`
	Device *models.Device `json:"device"`
}

func (e FailedAuth) Topic() string  { return TopicFailedAuth }
func (e FailedAuth) UserID() string { return e.Login.UserID }

// LockoutAuth is emitted after a lockout is persisted
type LockoutAuth struct {
	Login  *models.Login  `json:"login"`
	Device *models.Device `json:"device"`
}

func (e LockoutAuth) Topic() string  { return TopicLockoutAuth }
func (e LockoutAuth) UserID() string { return e.Login.UserID }

// Sink receives events. Emit never fails from the caller's point of view;
// implementations log delivery problems themselves.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// Discard drops every event
var Discard Sink = SinkFunc(func(context.Context, Event) {})
