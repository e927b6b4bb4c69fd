package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/storage/media"
)

type fakeMediaStore struct{}

func (fakeMediaStore) Upload(context.Context, []byte, media.Kind, string) (string, error) {
	return "https://example.org/a.png", nil
}

func TestRegisterAndGetMediaFactory(t *testing.T) {
	Register("fake-media", func(cfg *config.Media) (media.RemoteStore, error) {
		return fakeMediaStore{}, nil
	})

	factory, ok := Get("fake-media")
	if !ok {
		t.Fatalf("expected media factory to be registered")
	}

	store, err := factory(&config.Media{})
	if err != nil {
		t.Fatalf("factory returned error: %v", err)
	}
	if _, ok := store.(fakeMediaStore); !ok {
		t.Fatalf("unexpected store type: %T", store)
	}
}

func TestCreateMediaUnknownStrategy(t *testing.T) {
	cfg := &config.Media{Strategy: "missing"}
	if _, err := Create(cfg); err == nil {
		t.Fatalf("expected error for unknown media strategy")
	}
}

func TestCreateMediaNilConfig(t *testing.T) {
	if _, err := Create(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestCreateMediaUsesRegisteredFactory(t *testing.T) {
	Register("fake-media-create", func(cfg *config.Media) (media.RemoteStore, error) {
		return fakeMediaStore{}, nil
	})

	store, err := Create(&config.Media{Strategy: "fake-media-create"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, ok := store.(fakeMediaStore); !ok {
		t.Fatalf("unexpected store type: %T", store)
	}
}

func TestRegisterMediaReplacesFactory(t *testing.T) {
	Register("replace-media", func(cfg *config.Media) (media.RemoteStore, error) {
		return nil, errors.New("first")
	})
	Register("replace-media", func(cfg *config.Media) (media.RemoteStore, error) {
		return fakeMediaStore{}, nil
	})

	factory, _ := Get("replace-media")
	store, err := factory(&config.Media{})
	if err != nil {
		t.Fatalf("expected replaced media factory to succeed: %v", err)
	}
	if _, ok := store.(fakeMediaStore); !ok {
		t.Fatalf("unexpected store type: %T", store)
	}
}

func TestBuiltinMediaStrategiesRegistered(t *testing.T) {
	for _, strategy := range []string{"cloudinary", "s3"} {
		t.Run("strategy_"+strategy, func(t *testing.T) {
			factory, ok := Get(strategy)
			if !ok {
				t.Fatalf("expected %q strategy to be registered", strategy)
			}
			if factory == nil {
				t.Fatalf("expected non-nil factory for %q", strategy)
			}
		})
	}
}

func TestCreateS3MediaStore_MissingConfig(t *testing.T) {
	cfg := &config.Media{
		Strategy: "s3",
		S3:       nil,
	}

	if _, err := Create(cfg); err == nil {
		t.Fatal("expected error when S3 config is nil")
	}
}

func TestCreateCloudinaryMediaStore_Unconfigured(t *testing.T) {
	cfg := &config.Media{
		Strategy:    "cloudinary",
		Credentials: config.Credentials{CloudName: "your_cloud_name", ApiKey: "k", ApiSecret: "s"},
	}

	if _, err := Create(cfg); err == nil {
		t.Fatal("expected error when cloudinary credentials are placeholders")
	}
}
