package server

import "github.com/gofiber/fiber/v2"

// featureFlagsResponse is the body of GET /api/feature-flags.
type featureFlagsResponse struct {
	Raw       map[string]string `json:"raw"`
	Evaluated map[string]bool   `json:"evaluated"`
	Enabled   []string          `json:"enabled"`
}

// GetFeatureFlags lists the board's flags as configured and as they apply to
// the caller, e.g. whether anonymous posting or the hot ranking is on.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	resp := featureFlagsResponse{
		Raw:       map[string]string{},
		Evaluated: map[string]bool{},
		Enabled:   []string{},
	}
	if s.featureFlags != nil {
		uid := currentUserID(c)
		resp.Raw = s.featureFlags.Raw()
		resp.Evaluated = s.featureFlags.Snapshot(uid)
		for _, name := range s.featureFlags.Names() {
			if resp.Evaluated[name] {
				resp.Enabled = append(resp.Enabled, name)
			}
		}
	}
	return c.JSON(resp)
}
