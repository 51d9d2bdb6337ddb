package spaces

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Layout of the seeded inventory
const (
	Floors        = 3
	RowsPerFloor  = 10
	SpacesPerRow  = 5
	DefaultSpaces = Floors * RowsPerFloor * SpacesPerRow
)

type ParkingSpace struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	Label     string    `json:"label" gorm:"type:varchar(10);uniqueIndex;not null"`
	Floor     int       `json:"floor" gorm:"not null;index"`
	Row       int       `json:"row" gorm:"column:position_row;not null"`
	Column    int       `json:"column" gorm:"column:position_column;not null"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ParkingSpace) TableName() string {
	return "parking_spaces"
}

// SpaceLabel renders <floor><row:02><column>, e.g. floor 1 row 3 column 2 is "1032"
func SpaceLabel(floor, row, column int) string {
	return fmt.Sprintf("%d%02d%d", floor, row, column)
}

// Display is the gate-facing description of a space
func (p *ParkingSpace) Display() string {
	return fmt.Sprintf("%s (Floor %d)", p.Label, p.Floor)
}

// DefaultLayout builds the full floor x row x column inventory
func DefaultLayout() []ParkingSpace {
	out := make([]ParkingSpace, 0, DefaultSpaces)
	for floor := 1; floor <= Floors; floor++ {
		for row := 1; row <= RowsPerFloor; row++ {
			for col := 1; col <= SpacesPerRow; col++ {
				out = append(out, ParkingSpace{
					ID:       uuid.New(),
					Label:    SpaceLabel(floor, row, col),
					Floor:    floor,
					Row:      row,
					Column:   col,
					IsActive: true,
				})
			}
		}
	}
	return out
}
