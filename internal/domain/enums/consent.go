package enums

type ConsentStatus string

const (
	ConsentGranted ConsentStatus = "granted"
	ConsentDenied  ConsentStatus = "denied"
)

type ConsentType string

const (
	ConsentContactSave     ConsentType = "contact_save"
	ConsentContentAnalysis ConsentType = "content_analysis"
	ConsentGroupAdd        ConsentType = "group_add"
	ConsentDataProcessing  ConsentType = "data_processing"
	ConsentMigration       ConsentType = "migration"
)

func ParseConsentType(raw string) (ConsentType, bool) {
	switch ConsentType(raw) {
	case ConsentContactSave, ConsentContentAnalysis, ConsentGroupAdd, ConsentDataProcessing, ConsentMigration:
		return ConsentType(raw), true
	default:
		return "", false
	}
}
