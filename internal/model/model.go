package model

import (
	"github.com/greenprotect/fieldops/internal/model/entities"
	"github.com/greenprotect/fieldops/internal/model/messages"
)

// Aliases exposing the common types to the services.

type (
	Field            = entities.Field
	Disease          = entities.Disease
	Severity         = entities.Severity
	Finding          = messages.Finding
	SprayResultEvent = messages.SprayResultEvent
	ScanResultEvent  = messages.ScanResultEvent
	StateChangeEvent = messages.StateChangeEvent
	LevelsReading    = messages.LevelsReading
)

const (
	SeverityLow      = entities.SeverityLow
	SeverityModerate = entities.SeverityModerate
	SeveritySevere   = entities.SeveritySevere
)
