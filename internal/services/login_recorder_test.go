package services

import (
	"context"
	"errors"
	"testing"

	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/geo"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRecorder_RecordLogin(t *testing.T) {
	store := newMemoryStore(nil)
	sink := events.NewRecorder()
	locator := &MockLocator{
		LookupFunc: func(ctx context.Context, ip string) (models.IPInsights, error) {
			assert.Equal(t, "203.0.113.7", ip)
			return models.IPInsights{CountryCode: "NL", City: "Amsterdam", ASN: 1136}, nil
		},
	}
	recorder := NewLoginRecorder(store.loginRepo(), locator, ThrottlePolicy{}, sink, testLogger())
	device := &models.Device{ID: "device-1", UserID: "user-1"}

	login, err := recorder.RecordLogin(context.Background(), testUser, device, models.LoginTypeLogin, "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "user-1", login.UserID)
	assert.Equal(t, "device-1", login.DeviceID)
	assert.Equal(t, "203.0.113.7", login.IPAddress)
	assert.Equal(t, models.LoginTypeLogin, login.Type)
	assert.Equal(t, "Amsterdam", login.IPInsights.City)

	emitted := sink.Events()
	require.Len(t, emitted, 1)
	created, ok := emitted[0].(events.LoginCreated)
	require.True(t, ok)
	assert.Equal(t, login.ID, created.Login.ID)
}

func TestLoginRecorder_GeolocationFailureDegrades(t *testing.T) {
	failures := []error{
		errors.New("dial tcp: i/o timeout"),
		errors.New("quota exceeded"),
		geo.ErrInvalidIP,
		geo.ErrDisabled,
	}

	for _, lookupErr := range failures {
		t.Run(lookupErr.Error(), func(t *testing.T) {
			store := newMemoryStore(nil)
			sink := events.NewRecorder()
			locator := &MockLocator{
				LookupFunc: func(ctx context.Context, ip string) (models.IPInsights, error) {
					return models.IPInsights{CountryCode: "partial"}, lookupErr
				},
			}
			recorder := NewLoginRecorder(store.loginRepo(), locator, ThrottlePolicy{}, sink, testLogger())

			login, err := recorder.RecordLogin(context.Background(), testUser, &models.Device{ID: "device-1"}, models.LoginTypeFailed, "203.0.113.7")

			require.NoError(t, err)
			assert.True(t, login.IPInsights.IsEmpty())
			assert.Len(t, store.loginsOfType(models.LoginTypeFailed), 1)
			assert.Equal(t, []string{events.TopicLoginCreated}, sink.Topics())
		})
	}
}

func TestLoginRecorder_NilLocatorAndEmptyIP(t *testing.T) {
	store := newMemoryStore(nil)
	recorder := NewLoginRecorder(store.loginRepo(), nil, ThrottlePolicy{}, nil, testLogger())

	login, err := recorder.RecordLogin(context.Background(), testUser, &models.Device{ID: "device-1"}, models.LoginTypeLogin, "")
	require.NoError(t, err)
	assert.True(t, login.IPInsights.IsEmpty())
}

func TestLoginRecorder_PersistenceFailurePropagates(t *testing.T) {
	sink := events.NewRecorder()
	repo := &MockLoginRepository{
		CreateFunc: func(ctx context.Context, login *models.Login) (*models.Login, error) {
			return nil, errors.New("connection reset")
		},
	}
	recorder := NewLoginRecorder(repo, &MockLocator{}, ThrottlePolicy{}, sink, testLogger())

	_, err := recorder.RecordLogin(context.Background(), testUser, &models.Device{ID: "device-1"}, models.LoginTypeLogin, "203.0.113.7")

	assert.Error(t, err)
	assert.Empty(t, sink.Events())
}
