package domain

import (
	"errors"
	"time"
)

type Source string

const (
	SourceEURLex Source = "EURLEX"
	SourceJORF   Source = "JORF"
)

// Series of the EUR-Lex Official Journal.
type Series string

const (
	SeriesL Series = "L"
	SeriesC Series = "C"
)

func ParseSeries(s string) (Series, error) {
	switch s {
	case "L", "l":
		return SeriesL, nil
	case "C", "c":
		return SeriesC, nil
	}
	return "", errors.New("series must be L or C")
}

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusProcessed  ProcessingStatus = "processed"
	StatusError      ProcessingStatus = "error"
)

// EUR-Lex daily-view panel headings (French edition).
var EURLexTypologies = []string{
	"Résolutions, recommandations et avis",
	"Communications",
	"Informations",
	"Annonces",
	"Rectificatifs",
	"Actes non législatifs",
	"Actes législatifs",
}

// JORF act typologies.
const (
	JORFAvis          = "Avis"
	JORFDecret        = "Décret"
	JORFArrete        = "Arrêté"
	JORFDecision      = "Décision"
	JORFInformation   = "Information"
	JORFCommunication = "Communication"
	JORFAnnonce       = "Annonce"
	JORFAutre         = "Autre"
)

// Document is one tracked legal or administrative text. Content holds the
// path of the extracted text file, never the text itself.
type Document struct {
	ID               string           `json:"id"`
	Source           Source           `json:"source"`
	Date             time.Time        `json:"date"`
	URL              string           `json:"url"`
	Typologie        string           `json:"typologie"`
	Ministre         string           `json:"ministre"`
	Titre            string           `json:"titre"`
	Abstract         string           `json:"abstract"`
	Content          string           `json:"content"`
	Language         string           `json:"language"`
	Summary          string           `json:"summary"`
	Themes           []string         `json:"themes"`
	Applicability    string           `json:"applicability"`
	Keywords         []string         `json:"keywords"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Processed        time.Time        `json:"processed"`
}

// DocumentUpdate is a partial update; nil fields are left untouched.
type DocumentUpdate struct {
	Titre            *string
	Abstract         *string
	Content          *string
	Ministre         *string
	Summary          *string
	Themes           *[]string
	Applicability    *string
	Keywords         *[]string
	ProcessingStatus *ProcessingStatus
}

func StringPtr(s string) *string { return &s }
func StringsPtr(s []string) *[]string { return &s }
func StatusPtr(s ProcessingStatus) *ProcessingStatus { return &s }
