package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type RunCompletedMailData struct {
	RunID                 string  `json:"runID"`
	DisasterType          string  `json:"disasterType"`
	Status                string  `json:"status"`
	BestFitness           float64 `json:"bestFitness"`
	Coverage              float64 `json:"coverage"`
	BeneficiaryPopulation int     `json:"beneficiaryPopulation"`
	ErrorMessage          string  `json:"errorMessage,omitempty"`
}
