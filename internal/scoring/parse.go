package scoring

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/theneilagencia/glimora-sub000/internal/model"
)

var (
	tenureYearsRe  = regexp.MustCompile(`(?i)(\d+)\s*(?:years?|anos?|yrs?)`)
	tenureMonthsRe = regexp.MustCompile(`(?i)(\d+)\s*(?:months?|meses|mes|mos?)`)
)

// ParseTenure extracts a tenure in months from free text such as
// "2 years 3 months" or "5 anos". ok is false when neither a year nor a
// month amount is present.
func ParseTenure(text string) (months int, ok bool) {
	if m := tenureYearsRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			months += n * 12
			ok = true
		}
	}
	if m := tenureMonthsRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			months += n
			ok = true
		}
	}
	return months, ok
}

// ParseEmployee derives a ScoreInput from a scraped employee. The
// department is the first department keyword found in the title.
func (e *Engine) ParseEmployee(emp model.EmployeeRecord) ScoreInput {
	complete := strings.TrimSpace(emp.FullName) != "" &&
		strings.TrimSpace(emp.Title) != "" &&
		strings.TrimSpace(emp.ProfileURL) != ""

	in := ScoreInput{
		Title:           emp.Title,
		Department:      firstMatch(lowerText(emp.Title), e.kw.Department),
		ProfileComplete: complete,
		About:           emp.About,
	}
	if months, ok := ParseTenure(emp.Tenure); ok {
		in.TenureMonths = &months
	}
	return in
}
