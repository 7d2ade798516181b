package action

// DowngradeSuggestion は既知サービスの下位プラン提案。
type DowngradeSuggestion struct {
	Suggestion       string
	EstimatedSavings float64 // 月額換算の節約見込み（USD）
}

// downgradeSuggestions はサービス名の完全一致（大文字小文字を区別）で引く。
// 一覧にないサービスには提案を出さない。
var downgradeSuggestions = map[string]DowngradeSuggestion{
	"Netflix":              {"Standard with adsプランへの変更を検討してください", 15.50},
	"Spotify":              {"FamilyからDuoまたはIndividualプランへの変更を検討してください", 6.00},
	"YouTube Premium":      {"Premium Liteプランへの変更を検討してください", 6.00},
	"Adobe Creative Cloud": {"単体アプリプランへの変更を検討してください", 37.00},
	"Microsoft 365":        {"FamilyからPersonalプランへの変更を検討してください", 3.00},
	"Dropbox":              {"Plusプランへの変更を検討してください", 8.00},
	"Slack":                {"Proプランの年払いへの変更を検討してください", 1.50},
	"Zoom":                 {"Proプランへの変更を検討してください", 6.00},
	"ChatGPT":              {"ProからPlusプランへの変更を検討してください", 180.00},
	"Disney+":              {"広告付きプランへの変更を検討してください", 6.00},
	"Amazon Prime":         {"年払いへの変更を検討してください", 2.50},
}

// LookupDowngrade はサービス名に対応する下位プラン提案を返す。
func LookupDowngrade(name string) (DowngradeSuggestion, bool) {
	s, ok := downgradeSuggestions[name]
	return s, ok
}
