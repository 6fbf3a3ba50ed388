package filter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/impavidox/Gestionale/pkg/socio"
)

// Date patterns used by the member mapping.
const (
	// SourceDatePattern is the source API's ISO date
	SourceDatePattern = "%Y-%m-%d"
	// CertificateDatePattern is the source's medical certificate expiry format
	CertificateDatePattern = "%d/%m/%Y"
	// TargetDatePattern is the destination's DD-MM-YYYY format
	TargetDatePattern = "%d-%m-%Y"
)

// agonisticMarker marks a competitive activity in attivita1.attivita.
const agonisticMarker = "Agonistico"

// maleCode is the source sex code for "M". Every other value maps to "F".
const maleCode = 1

// ConvertSex maps the source sex code to "M" or "F".
func ConvertSex(code socio.Optional[int]) string {
	if c, ok := code.Get(); ok && c == maleCode {
		return "M"
	}
	return "F"
}

// FormatDate parses text with inputPattern and renders it with outputPattern
// (strftime directives, default %d-%m-%Y). An absent text, an unparsable
// text or an unsupported pattern all give an absent result.
func FormatDate(text socio.Optional[string], inputPattern, outputPattern string) socio.Optional[string] {
	s, ok := text.Get()
	if !ok {
		return socio.None[string]()
	}
	if inputPattern == "" {
		inputPattern = SourceDatePattern
	}
	if outputPattern == "" {
		outputPattern = TargetDatePattern
	}

	parseLayout, _, err := convertDateFormat(inputPattern)
	if err != nil {
		return socio.None[string]()
	}
	_, formatLayout, err := convertDateFormat(outputPattern)
	if err != nil {
		return socio.None[string]()
	}

	t, err := time.Parse(parseLayout, s)
	if err != nil {
		return socio.None[string]()
	}
	return socio.Some(t.Format(formatLayout))
}

// TransformRecord maps one source member record to the createSocio body.
// Missing or null source fields never fail the mapping; they become absent
// (null) target fields, except telefono and email which default to "".
func TransformRecord(rec socio.SourceRecord) socio.TargetRecord {
	return socio.TargetRecord{
		Nome:               textField(rec, socio.SourceNome),
		Cognome:            textField(rec, socio.SourceCognome),
		Sesso:              ConvertSex(intField(rec, socio.SourceSesso)),
		DataNascita:        FormatDate(stringField(rec, socio.SourceBirthDate), SourceDatePattern, TargetDatePattern),
		ProvinciaNascita:   textField(rec, socio.SourceBirthProv),
		ComuneNascita:      textField(rec, socio.SourceBirthCity),
		ProvinciaResidenza: textField(rec, socio.SourceProvRes),
		ComuneResidenza:    textField(rec, socio.SourceCitta),
		ViaResidenza:       textField(rec, socio.SourceIndirizzo),
		CapResidenza:       capField(rec),
		DataIscrizione:     FormatDate(stringField(rec, socio.SourceDataInscrizione), SourceDatePattern, TargetDatePattern),

		// Membership flags are fixed business defaults, not derived from the source.
		IsTesserato:  0,
		IsEffettivo:  0,
		IsVolontario: 0,

		ScadenzaCertificato: FormatDate(stringField(rec, socio.SourceScadenzaCertificato), CertificateDatePattern, TargetDatePattern),
		IsAgonistico:        boolInt(isAgonistic(rec)),
		Telefono:            textField(rec, socio.SourceTel).OrElse(""),
		Email:               textField(rec, socio.SourceEmail).OrElse(""),
		Privacy:             boolInt(truthy(rec[socio.SourcePrivacy])),
		Codice:              socio.None[string](),
	}
}

// TransformRecords maps a batch of source records in order.
func TransformRecords(records []socio.SourceRecord) []socio.TargetRecord {
	out := make([]socio.TargetRecord, len(records))
	for i, rec := range records {
		out[i] = TransformRecord(rec)
	}
	return out
}

// ToMap converts a target record to its JSON object form for record hooks.
func ToMap(rec socio.TargetRecord) (map[string]interface{}, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func isAgonistic(rec socio.SourceRecord) bool {
	activity, ok := getNestedValue(rec, socio.SourceAttivita1+"."+socio.SourceAttivita)
	if !ok {
		return false
	}
	s, ok := activity.(string)
	return ok && strings.Contains(s, agonisticMarker)
}

// getNestedValue reads a dot-separated path through nested objects.
func getNestedValue(obj map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	current := interface{}(obj)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// textField reads a scalar field as text. Strings are kept as is, numbers and
// booleans are rendered; null, missing, objects and arrays are absent.
func textField(rec socio.SourceRecord, key string) socio.Optional[string] {
	switch v := rec[key].(type) {
	case string:
		return socio.Some(v)
	case bool:
		return socio.Some(strconv.FormatBool(v))
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return socio.Some(v.String())
		}
		if f, err := v.Float64(); err == nil {
			return socio.Some(numberText(f))
		}
		return socio.Some(v.String())
	}
	if f, ok := parseFloatValue(rec[key]); ok {
		return socio.Some(numberText(f))
	}
	return socio.None[string]()
}

// capField reads the postal code. Numbers, zero included, are stringified;
// blank strings and booleans are not postal codes and give an absent value.
func capField(rec socio.SourceRecord) socio.Optional[string] {
	if _, ok := rec[socio.SourceCap].(bool); ok {
		return socio.None[string]()
	}
	code := textField(rec, socio.SourceCap)
	if v, ok := code.Get(); ok && strings.TrimSpace(v) == "" {
		return socio.None[string]()
	}
	return code
}

// stringField reads a field only when it holds a string.
func stringField(rec socio.SourceRecord, key string) socio.Optional[string] {
	if s, ok := rec[key].(string); ok {
		return socio.Some(s)
	}
	return socio.None[string]()
}

// intField reads an integral number (true and false count as 1 and 0).
func intField(rec socio.SourceRecord, key string) socio.Optional[int] {
	v := rec[key]
	if b, ok := v.(bool); ok {
		return socio.Some(boolInt(b))
	}
	f, ok := parseFloatValue(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return socio.None[int]()
	}
	return socio.Some(int(f))
}

func parseFloatValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// numberText renders integral values without a fraction (20100, not 20100.0).
func numberText(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// truthy follows the source system's notion of a set flag: true, a non-zero
// number, or a non-empty string, array or object.
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	}
	if f, ok := parseFloatValue(value); ok {
		return f != 0
	}
	return true
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
