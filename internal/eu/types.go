package eu

// RawRecord is one result from the EU Funding & Tenders search API. The
// upstream encodes nearly every metadata field as an array of one string;
// the normalizer flattens those quirks at this boundary so nothing else in
// the system has to know about them.
type RawRecord struct {
	Language string      `json:"language"`
	Metadata RawMetadata `json:"metadata"`
}

type RawMetadata struct {
	Identifier             []string `json:"identifier"`
	Title                  []string `json:"title"`
	DescriptionByte        []string `json:"descriptionByte"`
	Status                 []string `json:"status"`
	DeadlineDate           []string `json:"deadlineDate"`
	FrameworkProgramme     []string `json:"frameworkProgramme"`
	DestinationDescription []string `json:"destinationDescription"`
	CCM2ID                 []string `json:"ccm2Id"`
	CCMID                  []string `json:"ccmId"`
	BudgetTopicActionSub   []string `json:"ccm2DetailsbudgetTopicActionSub"`

	// Actions is stringified JSON carrying per-action deadline and opening
	// dates; present on some records instead of (or alongside) deadlineDate.
	Actions []string `json:"actions"`
}

// searchResponse is the wire shape of the search API body.
type searchResponse struct {
	Results    []RawRecord `json:"results"`
	TotalCount int         `json:"totalResults"`
}

// rawAction mirrors one entry of the stringified metadata.actions payload.
type rawAction struct {
	Status struct {
		Description  string `json:"description"`
		Abbreviation string `json:"abbreviation"`
	} `json:"status"`
	DeadlineDates      []string `json:"deadlineDates"`
	PlannedOpeningDate string   `json:"plannedOpeningDate"`
}

// first returns the first element of an array-of-one-string field, or the
// fallback when the array is missing or its head is empty.
func first(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}
