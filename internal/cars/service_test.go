package cars

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"parkly/internal/shared/apperrors"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu   sync.Mutex
	cars map[uuid.UUID]*Car
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{cars: make(map[uuid.UUID]*Car)}
}

func (f *fakeRepo) Create(_ context.Context, car *Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *car
	f.cars[car.ID] = &c
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cars[id]
	if !ok {
		return nil, ErrCarNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeRepo) ListActiveByOwner(_ context.Context, ownerID uuid.UUID) ([]Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Car
	for _, c := range f.cars {
		if c.UserID == ownerID && c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	cars, _ := f.ListActiveByOwner(ctx, ownerID)
	return int64(len(cars)), nil
}

func (f *fakeRepo) ListAvailable(ctx context.Context, ownerID uuid.UUID, _, _ time.Time) ([]Car, error) {
	return f.ListActiveByOwner(ctx, ownerID)
}

func (f *fakeRepo) Deactivate(_ context.Context, id, ownerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cars[id]
	if !ok || c.UserID != ownerID || !c.IsActive {
		return ErrCarNotFound
	}
	c.IsActive = false
	return nil
}

func validCar(plate string) *CreateCarRequest {
	return &CreateCarRequest{Make: "Maruti", Model: "Swift", Year: 2021, Color: "Red", LicensePlate: plate}
}

func TestAddCarNormalizesPlate(t *testing.T) {
	svc := NewService(newFakeRepo(), 5)
	car, err := svc.AddCar(context.Background(), uuid.New(), validCar("  ka01ab1234 "))
	if err != nil {
		t.Fatalf("AddCar: %v", err)
	}
	if car.LicensePlate != "KA01AB1234" {
		t.Errorf("plate = %q", car.LicensePlate)
	}
	if !car.IsActive {
		t.Error("new car should be active")
	}
}

func TestAddCarEnforcesLimit(t *testing.T) {
	svc := NewService(newFakeRepo(), 2)
	owner := uuid.New()

	for _, plate := range []string{"A1", "A2"} {
		if _, err := svc.AddCar(context.Background(), owner, validCar(plate)); err != nil {
			t.Fatalf("AddCar(%s): %v", plate, err)
		}
	}

	_, err := svc.AddCar(context.Background(), owner, validCar("A3"))
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for third car, got %v", err)
	}

	// another owner is unaffected
	if _, err := svc.AddCar(context.Background(), uuid.New(), validCar("B1")); err != nil {
		t.Fatalf("other owner AddCar: %v", err)
	}
}

func TestDeleteCar(t *testing.T) {
	svc := NewService(newFakeRepo(), 5)
	owner := uuid.New()
	car, err := svc.AddCar(context.Background(), owner, validCar("DEL1"))
	if err != nil {
		t.Fatalf("AddCar: %v", err)
	}

	if err := svc.DeleteCar(context.Background(), uuid.New(), car.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("deleting someone else's car: expected not found, got %v", err)
	}
	if err := svc.DeleteCar(context.Background(), owner, car.ID); err != nil {
		t.Fatalf("DeleteCar: %v", err)
	}
	if err := svc.DeleteCar(context.Background(), owner, car.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}

	cars, _ := svc.ListCars(context.Background(), owner)
	if len(cars) != 0 {
		t.Errorf("expected no active cars, got %d", len(cars))
	}
}

func TestGetOwnedActive(t *testing.T) {
	svc := NewService(newFakeRepo(), 5)
	owner := uuid.New()
	car, _ := svc.AddCar(context.Background(), owner, validCar("OWN1"))

	tests := []struct {
		name    string
		owner   uuid.UUID
		carID   uuid.UUID
		wantErr error
	}{
		{"owner", owner, car.ID, nil},
		{"stranger", uuid.New(), car.ID, apperrors.ErrNotFound},
		{"missing", owner, uuid.New(), apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetOwnedActive(context.Background(), tt.owner, tt.carID)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
