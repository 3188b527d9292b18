package service

import "errors"

var (
	ErrConfigRead       = errors.New("config read failure")
	ErrTicketQuery      = errors.New("ticket query failure")
	ErrSurveyInsert     = errors.New("survey insert failure")
	ErrWatermarkPersist = errors.New("watermark persist failure")

	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidConfig    = errors.New("invalid category config")
	ErrRunInProgress    = errors.New("survey run already in progress")
)

var ErrStorageFailure = errors.New("storage failure")
