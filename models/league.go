package models

import "strings"

// League — запись в закрытом реестре отслеживаемых лиг.
// Динамические строковые идентификаторы исходных API проверяются
// на границе через LeagueByCode.
type League struct {
	Code     string `json:"code"`
	Region   string `json:"region"`
	Tier     int    `json:"tier"`
	Priority string `json:"priority"`
}

// Leagues — реестр профессиональных лиг. Tier 0 — международные
// турниры, 1 — основные регионы, 2 — второстепенные, 3 — академии.
var Leagues = []League{
	{Code: "CBLOL", Region: "BR", Tier: 1, Priority: "high"},
	{Code: "LCS", Region: "NA", Tier: 1, Priority: "high"},
	{Code: "LEC", Region: "EU", Tier: 1, Priority: "high"},
	{Code: "LCK", Region: "KR", Tier: 1, Priority: "high"},
	{Code: "LPL", Region: "CN", Tier: 1, Priority: "high"},
	{Code: "VCS", Region: "VN", Tier: 2, Priority: "medium"},
	{Code: "PCS", Region: "TW", Tier: 2, Priority: "medium"},
	{Code: "LJL", Region: "JP", Tier: 2, Priority: "medium"},
	{Code: "LLA", Region: "LA", Tier: 2, Priority: "medium"},
	{Code: "TCL", Region: "TR", Tier: 2, Priority: "medium"},
	{Code: "LCO", Region: "OC", Tier: 2, Priority: "medium"},
	{Code: "CBLOL Academy", Region: "BR", Tier: 3, Priority: "low"},
	{Code: "LCS Academy", Region: "NA", Tier: 3, Priority: "low"},
	{Code: "Worlds", Region: "INTL", Tier: 0, Priority: "critical"},
	{Code: "MSI", Region: "INTL", Tier: 0, Priority: "critical"},
}

// LeagueByCode ищет лигу в реестре без учёта регистра.
func LeagueByCode(code string) (League, bool) {
	for _, l := range Leagues {
		if strings.EqualFold(l.Code, code) {
			return l, true
		}
	}
	return League{}, false
}
