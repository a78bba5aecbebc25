package models

import (
	"time"
)

type User struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey" bson:"_id"`
	Name       string    `json:"name" gorm:"not null" bson:"name"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null" bson:"email"`
	Password   string    `json:"-" gorm:"not null" bson:"password"`
	Phone      string    `json:"phone" bson:"phone"`
	Role       Role      `json:"role" gorm:"index;not null" bson:"role"`
	Specialty  string    `json:"specialty,omitempty" bson:"specialty,omitempty"`
	Department string    `json:"department,omitempty" bson:"department,omitempty"`
	Experience string    `json:"experience,omitempty" bson:"experience,omitempty"`
	Image      string    `json:"image,omitempty" bson:"image,omitempty"`
	Available  bool      `json:"available" bson:"available"`
	IsActive   bool      `json:"isActive" gorm:"index" bson:"isActive"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PatientSummary is the patient view joined onto an appointment.
type PatientSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// DoctorSummary is the doctor view joined onto an appointment.
type DoctorSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Specialty  string `json:"specialty"`
	Department string `json:"department"`
}

func (u *User) PatientSummary() *PatientSummary {
	return &PatientSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

func (u *User) DoctorSummary() *DoctorSummary {
	return &DoctorSummary{ID: u.ID, Name: u.Name, Email: u.Email, Specialty: u.Specialty, Department: u.Department}
}

type UserStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalDoctors  int64 `json:"totalDoctors"`
	TotalPatients int64 `json:"totalPatients"`
	TotalAdmins   int64 `json:"totalAdmins"`
}
