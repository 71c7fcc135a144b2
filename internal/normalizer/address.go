package normalizer

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ==================== 地址校验 ====================

// AddressStatus 地址校验结果
type AddressStatus string

const (
	AddressValid       AddressStatus = "VALID"
	AddressNoCandidate AddressStatus = "NO_CANDIDATE"
	AddressAmbiguous   AddressStatus = "AMBIGUOUS" // UPS 返回多个候选地址
	AddressError       AddressStatus = "ERROR"
)

// 地址分类
const (
	ClassificationResidential = "RESIDENTIAL"
	ClassificationBusiness    = "BUSINESS"
	ClassificationMixed       = "MIXED"
	ClassificationUnknown     = "UNKNOWN"
)

// CandidateAddress 承运商给出的候选地址
type CandidateAddress struct {
	AddressLines   []string `json:"address_lines"`
	City           string   `json:"city"`
	Region         string   `json:"region"`
	PostalCode     string   `json:"postal_code"`
	CountryCode    string   `json:"country_code"`
	Classification string   `json:"classification,omitempty"`
}

// AddressLine 拼接后的街道地址
func (c CandidateAddress) AddressLine() string {
	return strings.Join(c.AddressLines, ", ")
}

// AddressValidation 归一化后的地址校验结果
type AddressValidation struct {
	Schema         Schema             `json:"schema"`
	Status         AddressStatus      `json:"status"`
	AddressLine    string             `json:"address_line"`
	City           string             `json:"city"`
	Region         string             `json:"region"`
	PostalCode     string             `json:"postal_code"`
	CountryCode    string             `json:"country_code"`
	Classification string             `json:"classification,omitempty"`
	Candidates     []CandidateAddress `json:"candidates,omitempty"`
	Raw            json.RawMessage    `json:"raw,omitempty"`
}

// IsValid 只有 VALID 允许进入下一步
func (a *AddressValidation) IsValid() bool {
	return a != nil && a.Status == AddressValid
}

// Candidate 返回首选候选地址
func (a *AddressValidation) Candidate() (CandidateAddress, bool) {
	if a == nil || len(a.Candidates) == 0 {
		return CandidateAddress{}, false
	}
	return a.Candidates[0], true
}

// NormalizeAddressValidation 归一化地址校验报文，永不失败
func NormalizeAddressValidation(raw []byte) *AddressValidation {
	switch DetectSchema(raw, upsAddressRoot) {
	case SchemaFedEx:
		return fedexAddress(raw)
	case SchemaUPS:
		return upsAddress(raw)
	default:
		return &AddressValidation{Schema: SchemaUnknown, Status: AddressError, Raw: rawCopy(raw)}
	}
}

// fedexAddress output.resolvedAddresses[0] 为匹配结果，缺失即无候选
func fedexAddress(raw []byte) *AddressValidation {
	result := &AddressValidation{Schema: SchemaFedEx, Raw: rawCopy(raw)}

	for _, item := range asArray(gjson.GetBytes(raw, "output.resolvedAddresses")) {
		result.Candidates = append(result.Candidates, CandidateAddress{
			AddressLines:   stringList(item.Get("streetLinesToken")),
			City:           item.Get("city").String(),
			Region:         item.Get("stateOrProvinceCode").String(),
			PostalCode:     item.Get("postalCode").String(),
			CountryCode:    item.Get("countryCode").String(),
			Classification: fedexClassification(item.Get("classification").String()),
		})
	}

	if len(result.Candidates) == 0 {
		result.Status = AddressNoCandidate
		return result
	}
	result.Status = AddressValid
	result.fill(result.Candidates[0])
	return result
}

// upsAddress 依据 XAVResponse 上的指示字段判定结果
// 指示字段存在即为真（值为空字符串）
func upsAddress(raw []byte) *AddressValidation {
	xav := gjson.GetBytes(raw, upsAddressRoot)
	result := &AddressValidation{Schema: SchemaUPS, Raw: rawCopy(raw)}

	fallbackClass := upsClassification(xav.Get("AddressClassification.Code").String())
	for _, item := range asArray(xav.Get("Candidate")) {
		key := item.Get("AddressKeyFormat")
		postal := key.Get("PostcodePrimaryLow").String()
		if ext := key.Get("PostcodeExtendedLow").String(); ext != "" && postal != "" {
			postal += "-" + ext
		}
		class := fallbackClass
		if code := item.Get("AddressClassification.Code"); code.Exists() {
			class = upsClassification(code.String())
		}
		result.Candidates = append(result.Candidates, CandidateAddress{
			AddressLines:   stringList(key.Get("AddressLine")),
			City:           key.Get("PoliticalDivision2").String(),
			Region:         key.Get("PoliticalDivision1").String(),
			PostalCode:     postal,
			CountryCode:    key.Get("CountryCode").String(),
			Classification: class,
		})
	}

	switch {
	case xav.Get("ValidAddressIndicator").Exists():
		if len(result.Candidates) == 0 {
			result.Status = AddressError
			return result
		}
		result.Status = AddressValid
		result.fill(result.Candidates[0])
	case xav.Get("NoCandidatesIndicator").Exists():
		result.Status = AddressNoCandidate
	case xav.Get("AmbiguousAddressIndicator").Exists():
		result.Status = AddressAmbiguous
	default:
		result.Status = AddressError
	}
	return result
}

func (a *AddressValidation) fill(c CandidateAddress) {
	a.AddressLine = c.AddressLine()
	a.City = c.City
	a.Region = c.Region
	a.PostalCode = c.PostalCode
	a.CountryCode = c.CountryCode
	a.Classification = c.Classification
}

func fedexClassification(v string) string {
	switch strings.ToUpper(v) {
	case "RESIDENTIAL":
		return ClassificationResidential
	case "BUSINESS":
		return ClassificationBusiness
	case "MIXED":
		return ClassificationMixed
	case "":
		return ""
	default:
		return ClassificationUnknown
	}
}

// upsClassification 0 未分类, 1 商业, 2 住宅
func upsClassification(code string) string {
	switch code {
	case "1":
		return ClassificationBusiness
	case "2":
		return ClassificationResidential
	case "0":
		return ClassificationUnknown
	default:
		return ""
	}
}
