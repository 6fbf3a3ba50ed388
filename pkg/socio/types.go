package socio

// SourceRecord is one member entry as decoded from the libro soci JSON array.
// Keys are the source system's field names (including its "birhDate" typo).
type SourceRecord = map[string]interface{}

// Source field names.
const (
	SourceNome                = "nome"
	SourceCognome             = "cognome"
	SourceSesso               = "sesso"
	SourceBirthDate           = "birhDate"
	SourceBirthProv           = "birthProv"
	SourceBirthCity           = "birthCity"
	SourceProvRes             = "provRes"
	SourceCitta               = "citta"
	SourceIndirizzo           = "indirizzo"
	SourceCap                 = "cap"
	SourceDataInscrizione     = "dataInscrizione"
	SourceScadenzaCertificato = "scadenzaCertificatMedical"
	SourceAttivita1           = "attivita1"
	SourceAttivita            = "attivita"
	SourceTel                 = "tel"
	SourceEmail               = "email"
	SourcePrivacy             = "privacy"
)

// TargetRecord is the body posted to the createSocio endpoint.
// Field order matches the destination API's documented shape.
type TargetRecord struct {
	Nome                Optional[string] `json:"nome"`
	Cognome             Optional[string] `json:"cognome"`
	Sesso               string           `json:"sesso"`
	DataNascita         Optional[string] `json:"dataNascita"`
	ProvinciaNascita    Optional[string] `json:"provinciaNascita"`
	ComuneNascita       Optional[string] `json:"comuneNascita"`
	ProvinciaResidenza  Optional[string] `json:"provinciaResidenza"`
	ComuneResidenza     Optional[string] `json:"comuneResidenza"`
	ViaResidenza        Optional[string] `json:"viaResidenza"`
	CapResidenza        Optional[string] `json:"capResidenza"`
	DataIscrizione      Optional[string] `json:"dataIscrizione"`
	IsTesserato         int              `json:"isTesserato"`
	IsEffettivo         int              `json:"isEffettivo"`
	IsVolontario        int              `json:"isVolontario"`
	ScadenzaCertificato Optional[string] `json:"scadenzaCertificato"`
	IsAgonistico        int              `json:"isAgonistico"`
	Telefono            string           `json:"telefono"`
	Email               string           `json:"email"`
	Privacy             int              `json:"privacy"`
	Codice              Optional[string] `json:"codice"`
}

// DisplayName returns "nome cognome" for console progress lines.
// Absent parts render as None.
func (r TargetRecord) DisplayName() string {
	return r.Nome.OrElse("None") + " " + r.Cognome.OrElse("None")
}

// MigrationResult summarises one migrate run.
type MigrationResult struct {
	// Status is "success", "partial" or "error"
	Status string `json:"status"`

	// Start and End are the requested source range bounds
	Start int `json:"start"`
	End   int `json:"end"`

	// Fetched is the number of source records returned by the read endpoint
	Fetched int `json:"fetched"`

	// Created is the number of records the write endpoint accepted
	Created int `json:"created"`

	// Failed is the number of records that were not created
	Failed int `json:"failed"`

	// Skipped is the number of records the script hook dropped
	Skipped int `json:"skipped,omitempty"`

	// DryRun is true when no write requests were issued
	DryRun bool `json:"dryRun,omitempty"`

	// Failures lists each record that was not created, in source order
	Failures []RecordFailure `json:"failures,omitempty"`
}

// RecordFailure describes one record whose write did not succeed.
type RecordFailure struct {
	// Index is the record position in the source array
	Index int `json:"index"`

	// Name is the record's display name
	Name string `json:"name"`

	// StatusCode is the write response status (0 when no response was received)
	StatusCode int `json:"statusCode,omitempty"`

	// Category is the error classification (validation, server, network, ...)
	Category string `json:"category,omitempty"`

	// Transient is true when resending the same record could succeed
	// (network failures, 429, 5xx)
	Transient bool `json:"transient,omitempty"`

	// Message is the raw response body or the error message
	Message string `json:"message"`
}
