package advocate

import (
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Table and column names used by the search predicates.
const (
	TableName = "advocates"

	ColumnID                = "id"
	ColumnFirstName         = "first_name"
	ColumnLastName          = "last_name"
	ColumnCity              = "city"
	ColumnDegree            = "degree"
	ColumnSpecialties       = "specialties"
	ColumnYearsOfExperience = "years_of_experience"
	ColumnPhoneNumber       = "phone_number"
)

// Advocate is a directory record. It is read-only from the search service's
// point of view.
//
// PhoneNumber is stored as an integer column and rendered as a JSON string.
// Specialties is stored as a JSON document, so the store can only match it as
// serialized text.
type Advocate struct {
	bun.BaseModel `bun:"table:advocates,alias:advocate"`

	ID                uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	FirstName         string    `bun:"first_name,notnull" json:"firstName"`
	LastName          string    `bun:"last_name,notnull" json:"lastName"`
	City              string    `bun:"city,notnull" json:"city"`
	Degree            string    `bun:"degree,notnull" json:"degree"`
	Specialties       []string  `bun:"specialties,type:jsonb,notnull" json:"specialties"`
	YearsOfExperience int       `bun:"years_of_experience,notnull" json:"yearsOfExperience"`
	PhoneNumber       int64     `bun:"phone_number,notnull" json:"phoneNumber,string"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// Handlers returns the go-repository-bun model handlers for Advocate.
func Handlers() repository.ModelHandlers[*Advocate] {
	return repository.ModelHandlers[*Advocate]{
		NewRecord: func() *Advocate {
			return &Advocate{}
		},
		GetID: func(record *Advocate) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Advocate, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return ColumnID
		},
	}
}

// NewRepository builds the generic bun repository for advocates.
func NewRepository(db *bun.DB) repository.Repository[*Advocate] {
	return repository.NewRepository[*Advocate](db, Handlers())
}
