package usecase

import (
	"strings"

	"github.com/xavierca1/funnelsync/internal/entity"
)

// ClassifyPlan infers the membership type from the external plan name.
// "loyalty" wins over "flex" when both appear. Plan names matching neither
// keyword fall back to flex; the portals have shipped such names before and
// the sync must not stall on them.
func ClassifyPlan(planName string) entity.MembershipType {
	name := strings.ToLower(planName)

	if strings.Contains(name, "loyalty") {
		return entity.MembershipLoyalty
	}
	if strings.Contains(name, "flex") {
		return entity.MembershipFlex
	}

	return entity.MembershipFlex
}
