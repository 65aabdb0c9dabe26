// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import (
	"fmt"
)

// Constants for the HTTP request headers
const (
	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"
)

// LFX app domain constants
const (
	// LFXDomainDev is the development domain
	LFXDomainDev = "app.dev.lfx.dev"
	// LFXDomainStaging is the staging domain
	LFXDomainStaging = "app.staging.lfx.dev"
	// LFXDomainProd is the production domain
	LFXDomainProd = "app.lfx.dev"
)

// GetLFXAppDomain returns the appropriate LFX app domain based on the environment
// Environment should be one of: "dev", "staging", "prod"
func GetLFXAppDomain(environment string) string {
	switch environment {
	case "dev":
		return LFXDomainDev
	case "staging":
		return LFXDomainStaging
	case "prod":
		return LFXDomainProd
	default:
		// Default to production domain if environment is not one of the expected values
		return LFXDomainProd
	}
}

// LfxURLGenerator generates LFX app URLs with environment-specific domains or custom app origins
type LfxURLGenerator struct {
	environment     string
	customAppOrigin string
}

// NewLfxURLGenerator creates a new LfxURLGenerator with the given environment and optional custom app origin
func NewLfxURLGenerator(environment, customAppOrigin string) *LfxURLGenerator {
	return &LfxURLGenerator{
		environment:     environment,
		customAppOrigin: customAppOrigin,
	}
}

func (g *LfxURLGenerator) origin() string {
	if g.customAppOrigin != "" {
		return g.customAppOrigin
	}
	return "https://" + GetLFXAppDomain(g.environment)
}

// GenerateMeetingURL generates the LFX app meeting URL with the given meeting UID
func (g *LfxURLGenerator) GenerateMeetingURL(meetingUID string) string {
	return fmt.Sprintf("%s/meetings/%s", g.origin(), meetingUID)
}

// GenerateActionItemURL generates the LFX app URL of one action item of a meeting
func (g *LfxURLGenerator) GenerateActionItemURL(meetingUID, actionItemUID string) string {
	return fmt.Sprintf("%s/meetings/%s/action-items#%s", g.origin(), meetingUID, actionItemUID)
}
