package worknet

import (
	"strings"

	"github.com/lysyi3m/job-agent/app/database"
)

// postingElement is the XML element name of a single job advertisement.
const postingElement = "dhsOpenEmpInfo"

type rawPosting struct {
	CompanyName    string `xml:"empBusiNm"`
	JobTitle       string `xml:"empWantedTitle"`
	EmploymentType string `xml:"empWantedTypeNm"`
	StartDate      string `xml:"empWantedStdt"`
	EndDate        string `xml:"empWantedEndt"`
	CompanyType    string `xml:"coClcdNm"`
	CompanyLogo    string `xml:"regLogImgNm"`
	ApplyLink      string `xml:"empWantedHomepgDetail"`
	JobID          string `xml:"wantedAuthNo"`
}

func (r rawPosting) toPosting() database.Posting {
	return database.Posting{
		CompanyName:    strings.TrimSpace(r.CompanyName),
		JobTitle:       strings.TrimSpace(r.JobTitle),
		EmploymentType: strings.TrimSpace(r.EmploymentType),
		StartDate:      strings.TrimSpace(r.StartDate),
		EndDate:        strings.TrimSpace(r.EndDate),
		CompanyType:    strings.TrimSpace(r.CompanyType),
		CompanyLogo:    strings.TrimSpace(r.CompanyLogo),
		ApplyLink:      strings.TrimSpace(r.ApplyLink),
		JobID:          strings.TrimSpace(r.JobID),
	}
}

type FetchStats struct {
	PagesOK     int
	PagesFailed int
	Seen        int
	Matched     int
}
