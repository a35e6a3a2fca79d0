package clawportal

import (
	"strconv"
	"strings"

	"clawredeem/pkg/htmlquery"
	"clawredeem/pkg/htmlutil"
)

const dashboardBoxClass = "dashboard-box"

// ClawPoints is the balance shown on the dashboard.
type ClawPoints struct {
	Total      int `json:"total"`
	Redeemable int `json:"redeemable"`
	Claimed    int `json:"claimed"`
}

var thousandsSeparators = strings.NewReplacer(".", "", ",", "", " ", "", "\u00a0", "")

// parsePoints reads one balance field, 0 when it is not a number.
func parsePoints(text string) int {
	text = thousandsSeparators.Replace(htmlutil.NormalizeText(text))
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}

// ExtractPoints reads the first three paragraphs under the dashboard box as
// total, redeemable and claimed points. It reports false when fewer than
// three paragraphs exist.
func ExtractPoints(page htmlquery.Query) (ClawPoints, bool) {
	fields := page.ByClassExact(dashboardBoxClass).ByTag("p").All()
	if len(fields) < 3 {
		return ClawPoints{}, false
	}
	return ClawPoints{
		Total:      parsePoints(fields[0].Text()),
		Redeemable: parsePoints(fields[1].Text()),
		Claimed:    parsePoints(fields[2].Text()),
	}, true
}
