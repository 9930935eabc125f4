package main

import (
	"github.com/liamcoop/labourcompliance/compare"
	"github.com/liamcoop/labourcompliance/compliance"
	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/organizations"
	"github.com/liamcoop/labourcompliance/rules"
)

// API request and response models

// RulesListResponse is the response for rule lookups
type RulesListResponse struct {
	Rules []*rules.Rule `json:"rules"`
}

// EvaluateResponse is the response for a compliance evaluation
type EvaluateResponse struct {
	Checks  []compliance.Check `json:"checks"`
	Skipped []compliance.Skip  `json:"skipped,omitempty"`
}

// CompareResponse carries the raw rules per jurisdiction and the matrix built
// from them.
type CompareResponse struct {
	Comparison map[jurisdiction.Jurisdiction][]*rules.Rule `json:"comparison"`
	Matrix     compare.Matrix                              `json:"matrix"`
}

// CreateOrganizationRequest is the request body for registering an organization
type CreateOrganizationRequest struct {
	ID           string `json:"id,omitempty" example:"local-1285"`
	Name         string `json:"name" example:"CUPE Local 1285"`
	Jurisdiction string `json:"jurisdiction" example:"ON"`
}

// OrganizationsListResponse is the response for listing organizations
type OrganizationsListResponse struct {
	Organizations []*organizations.Organization `json:"organizations"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"rule not found"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status              string `json:"status" example:"healthy"`
	Error               string `json:"error,omitempty"`
	RulesLoaded         int    `json:"rulesLoaded"`
	OrganizationsLoaded int    `json:"organizationsLoaded"`
}
