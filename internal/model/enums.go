package model

import "github.com/rotisserie/eris"

// SCRModule identifies a Solvency II SCR risk module.
//
// The vocabulary is closed. Values must stay mutually non-substring in their
// serialized (JSON-quoted) form because the store's module-membership query is
// a containment test over the serialized module set.
type SCRModule string

const (
	ModuleSpread        SCRModule = "spread"
	ModuleInterestRate  SCRModule = "interest_rate"
	ModuleEquity        SCRModule = "equity"
	ModuleCurrency      SCRModule = "currency"
	ModuleConcentration SCRModule = "concentration"
	ModuleMarketGlobal  SCRModule = "market_global"
	ModuleCounterparty  SCRModule = "counterparty"
	ModuleOperational   SCRModule = "operational"
	ModuleLife          SCRModule = "life"
	ModuleNonLife       SCRModule = "non_life"
)

// AllModules lists every SCR module in declaration order.
func AllModules() []SCRModule {
	return []SCRModule{
		ModuleSpread,
		ModuleInterestRate,
		ModuleEquity,
		ModuleCurrency,
		ModuleConcentration,
		ModuleMarketGlobal,
		ModuleCounterparty,
		ModuleOperational,
		ModuleLife,
		ModuleNonLife,
	}
}

// ParseModule converts a raw string into an SCRModule, failing fast on
// anything outside the closed vocabulary.
func ParseModule(s string) (SCRModule, error) {
	for _, m := range AllModules() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", eris.Errorf("unsupported scr module: %q", s)
}

// DocType classifies a source document.
type DocType string

const (
	DocTypeRegulationEU       DocType = "regulation_eu"
	DocTypeDirective          DocType = "directive"
	DocTypeEIOPAGuidelines    DocType = "eiopa_guidelines"
	DocTypeTechnicalStandards DocType = "technical_standards"
	DocTypeIndustryPaper      DocType = "industry_paper"
	DocTypeInternalDoc        DocType = "internal_doc"
	DocTypeAcademicPaper      DocType = "academic_paper"
)

// AllDocTypes lists every document type in declaration order.
func AllDocTypes() []DocType {
	return []DocType{
		DocTypeRegulationEU,
		DocTypeDirective,
		DocTypeEIOPAGuidelines,
		DocTypeTechnicalStandards,
		DocTypeIndustryPaper,
		DocTypeInternalDoc,
		DocTypeAcademicPaper,
	}
}

// ParseDocType converts a raw string into a DocType, failing fast on unknown
// values.
func ParseDocType(s string) (DocType, error) {
	for _, t := range AllDocTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", eris.Errorf("unsupported document type: %q", s)
}
