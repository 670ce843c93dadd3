// Package types holds the shared data structures used across the
// application. Handlers, storage, and the service layer all import types
// without depending on each other.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Student represents a student record in our system.
//
// Every attribute except the ID is optional. A nil pointer is stored as
// SQL NULL and encoded as JSON null.
type Student struct {
	ID    uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name  *string `gorm:"size:255" json:"name"`
	Age   *int    `json:"age"`
	Email *string `gorm:"size:255" json:"email"`
}

// TableName pins the table to "students" regardless of GORM naming strategy.
func (Student) TableName() string {
	return "students"
}

// StudentPatch carries the client-supplied fields of a student.
//
// It is the body of both create and update requests. It has no ID field,
// so a client can never choose or change a student's identifier.
//
// A field that is omitted and a field that is sent as null both decode to
// nil, and nil always means "leave unchanged". There is no way to clear a
// field through a patch.
type StudentPatch struct {
	Name  *string `json:"name"`
	Age   *int    `json:"age"`
	Email *string `json:"email"`
}

// UnmarshalJSON accepts age either as a JSON number or as a numeric
// string, since HTML forms submit every value as text. An empty string
// counts as absent.
func (p *StudentPatch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  *string         `json:"name"`
		Age   json.RawMessage `json:"age"`
		Email *string         `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	age, err := decodeAge(raw.Age)
	if err != nil {
		return err
	}

	*p = StudentPatch{Name: raw.Name, Age: age, Email: raw.Email}
	return nil
}

func decodeAge(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("age must be an integer, got %s", raw)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, fmt.Errorf("age must be an integer, got %q", text)
	}
	return &n, nil
}

// ApplyTo overwrites the fields of s for which the patch holds a value.
func (p StudentPatch) ApplyTo(s *Student) {
	if p.Name != nil {
		s.Name = p.Name
	}
	if p.Age != nil {
		s.Age = p.Age
	}
	if p.Email != nil {
		s.Email = p.Email
	}
}

// Student builds a new, not yet persisted student from the patch.
func (p StudentPatch) Student() Student {
	var s Student
	p.ApplyTo(&s)
	return s
}
