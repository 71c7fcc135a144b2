package normalizer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== 报文样例 ====================

const fedexAddressOK = `{
  "transactionId": "a1",
  "output": {
    "resolvedAddresses": [{
      "streetLinesToken": ["7372 PARKRIDGE BLVD", "APT 286"],
      "city": "IRVING",
      "stateOrProvinceCode": "TX",
      "postalCode": "75063-8659",
      "countryCode": "US",
      "classification": "RESIDENTIAL"
    }]
  }
}`

const fedexAddressNone = `{"transactionId": "a2", "output": {"alerts": [{"code": "ADDRESS.NOT.FOUND"}]}}`

const upsAddressValid = `{
  "XAVResponse": {
    "Response": {"ResponseStatus": {"Code": "1", "Description": "Success"}},
    "ValidAddressIndicator": "",
    "AddressClassification": {"Code": "2", "Description": "Residential"},
    "Candidate": {
      "AddressKeyFormat": {
        "AddressLine": ["26601 ALISO CREEK RD"],
        "PoliticalDivision2": "ALISO VIEJO",
        "PoliticalDivision1": "CA",
        "PostcodePrimaryLow": "92656",
        "PostcodeExtendedLow": "8024",
        "CountryCode": "US"
      }
    }
  }
}`

const upsAddressNone = `{"XAVResponse": {"Response": {"ResponseStatus": {"Code": "1"}}, "NoCandidatesIndicator": ""}}`

const upsAddressAmbiguous = `{
  "XAVResponse": {
    "AmbiguousAddressIndicator": "",
    "Candidate": [
      {"AddressKeyFormat": {"AddressLine": "1 MAIN ST", "PoliticalDivision2": "A", "PoliticalDivision1": "CA", "PostcodePrimaryLow": "90001", "CountryCode": "US"}},
      {"AddressKeyFormat": {"AddressLine": "1 MAIN ST", "PoliticalDivision2": "B", "PoliticalDivision1": "CA", "PostcodePrimaryLow": "90002", "CountryCode": "US"}}
    ]
  }
}`

const fedexRateOK = `{
  "transactionId": "r1",
  "output": {
    "rateReplyDetails": [{
      "serviceType": "FEDEX_GROUND",
      "serviceName": "FedEx Ground",
      "ratedShipmentDetails": [{
        "rateType": "ACCOUNT",
        "totalBaseCharge": 20.5,
        "totalNetCharge": 24.75,
        "currency": "USD",
        "shipmentRateDetail": {
          "totalBillingWeight": {"units": "LB", "value": 10},
          "surCharges": [
            {"type": "FUEL", "description": "Fuel Surcharge", "amount": 3.25},
            {"type": "RESIDENTIAL_DELIVERY", "description": "Residential delivery", "amount": 1.0}
          ]
        },
        "ratedPackages": [{
          "groupNumber": 1,
          "packageRateDetail": {
            "billingWeight": {"units": "LB", "value": 10},
            "baseCharge": 20.5,
            "netCharge": 24.75,
            "surcharges": [{"description": "Fuel Surcharge", "amount": 3.25}]
          }
        }]
      }]
    }]
  }
}`

const upsRateSingle = `{
  "RateResponse": {
    "Response": {"ResponseStatus": {"Code": "1"}},
    "RatedShipment": {
      "Service": {"Code": "03", "Description": "UPS Ground"},
      "BillingWeight": {"UnitOfMeasurement": {"Code": "LBS"}, "Weight": "5.0"},
      "TransportationCharges": {"CurrencyCode": "USD", "MonetaryValue": "15.10"},
      "ServiceOptionsCharges": {"CurrencyCode": "USD", "MonetaryValue": "0.00"},
      "ItemizedCharges": {"Code": "270", "CurrencyCode": "USD", "MonetaryValue": "1.20", "SubType": "FUEL"},
      "TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "16.30"},
      "RatedPackage": {
        "TransportationCharges": {"CurrencyCode": "USD", "MonetaryValue": "15.10"},
        "TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "16.30"},
        "BillingWeight": {"UnitOfMeasurement": {"Code": "LBS"}, "Weight": "5.0"},
        "ItemizedCharges": [{"Code": "270", "CurrencyCode": "USD", "MonetaryValue": "1.20"}]
      }
    }
  }
}`

const upsRateArray = `{
  "RateResponse": {
    "Response": {"ResponseStatus": {"Code": "1"}},
    "RatedShipment": {
      "Service": {"Code": "03", "Description": "UPS Ground"},
      "BillingWeight": {"UnitOfMeasurement": {"Code": "LBS"}, "Weight": "5.0"},
      "TransportationCharges": {"CurrencyCode": "USD", "MonetaryValue": "15.10"},
      "ServiceOptionsCharges": {"CurrencyCode": "USD", "MonetaryValue": "0.00"},
      "ItemizedCharges": {"Code": "270", "CurrencyCode": "USD", "MonetaryValue": "1.20", "SubType": "FUEL"},
      "TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "16.30"},
      "RatedPackage": [{
        "TransportationCharges": {"CurrencyCode": "USD", "MonetaryValue": "15.10"},
        "TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "16.30"},
        "BillingWeight": {"UnitOfMeasurement": {"Code": "LBS"}, "Weight": "5.0"},
        "ItemizedCharges": [{"Code": "270", "CurrencyCode": "USD", "MonetaryValue": "1.20"}]
      }]
    }
  }
}`

const fedexShipmentOK = `{
  "transactionId": "s1",
  "output": {
    "transactionShipments": [{
      "masterTrackingNumber": "794953555571",
      "serviceType": "FEDEX_GROUND",
      "serviceName": "FedEx Ground",
      "shipDatestamp": "2024-03-04",
      "pieceResponses": [
        {
          "trackingNumber": "794953555571",
          "packageSequenceNumber": 1,
          "deliveryDatestamp": "2024-03-07",
          "baseRateAmount": 0.00,
          "netChargeAmount": 28.10,
          "currency": "USD",
          "packageDocuments": [{"docType": "PDF", "encodedLabel": "JVBERi0xLjQK"}]
        },
        {
          "trackingNumber": "794953555582",
          "packageSequenceNumber": 2,
          "deliveryDatestamp": "2024-03-07",
          "baseRateAmount": 21.40,
          "netChargeAmount": 25.90,
          "currency": "USD"
        }
      ],
      "completedShipmentDetail": {
        "shipmentRating": {"shipmentRateDetails": [{"currency": "USD", "totalNetCharge": 54.00}]},
        "completedPackageDetails": [
          {"sequenceNumber": 1, "packageRating": {"packageRateDetails": [{"surcharges": [
            {"surchargeType": "FUEL", "description": "Fuel", "amount": 4.10},
            {"surchargeType": "RESIDENTIAL_DELIVERY", "description": "Residential", "amount": 2.60}
          ]}]}},
          {"sequenceNumber": 2, "packageRating": {"packageRateDetails": [{"surcharges": [
            {"surchargeType": "FUEL", "description": "Fuel", "amount": 4.50}
          ]}]}}
        ]
      }
    }]
  }
}`

const upsShipmentSingle = `{
  "ShipmentResponse": {
    "Response": {"ResponseStatus": {"Code": "1"}},
    "ShipmentResults": {
      "ShipmentCharges": {"TotalCharges": {"CurrencyCode": "USD", "MonetaryValue": "16.30"}},
      "ShipmentIdentificationNumber": "1ZXXXXXXXXXXXXXXXX",
      "PackageResults": {
        "TrackingNumber": "1Z12345E0205271688",
        "BaseServiceCharge": {"CurrencyCode": "USD", "MonetaryValue": "15.10"},
        "ItemizedCharges": {"Code": "375", "CurrencyCode": "USD", "MonetaryValue": "1.20"},
        "ShippingLabel": {"ImageFormat": {"Code": "GIF"}, "GraphicImage": "R0lGODlh"}
      }
    }
  }
}`

const fedexVoidOK = `{
  "transactionId": "v1",
  "output": {"cancelledShipment": true, "cancelledHistory": true, "successMessage": "Success"}
}`

const fedexVoidFailed = `{
  "transactionId": "v2",
  "output": {"cancelledShipment": false, "alerts": [{"code": "SHIPMENT.ALREADY.CANCELLED", "alertType": "WARNING", "message": "Already cancelled"}]}
}`

const upsVoidOK = `{
  "VoidShipmentResponse": {
    "Response": {"ResponseStatus": {"Code": "1", "Description": "Success"}},
    "SummaryResult": {"Status": {"Code": "1", "Description": "Voided"}}
  }
}`

// ==================== DetectSchema ====================

func TestDetectSchema(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		upsRoot string
		want    Schema
	}{
		{"FedEx output 对象", fedexRateOK, upsRateRoot, SchemaFedEx},
		{"UPS 顶层对象", upsRateSingle, upsRateRoot, SchemaUPS},
		{"UPS 顶层对象与业务不匹配", upsRateSingle, upsShipmentRoot, SchemaUnknown},
		{"空报文", "", upsRateRoot, SchemaUnknown},
		{"非法 JSON", "{not json", upsRateRoot, SchemaUnknown},
		{"output 不是对象", `{"output": "x"}`, upsRateRoot, SchemaUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectSchema([]byte(tt.raw), tt.upsRoot))
		})
	}
}

// ==================== 地址校验 ====================

func TestNormalizeAddressValidation(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantStatus AddressStatus
		wantSchema Schema
		wantPostal string
		wantClass  string
	}{
		{"FedEx 匹配", fedexAddressOK, AddressValid, SchemaFedEx, "75063-8659", ClassificationResidential},
		{"FedEx 无匹配", fedexAddressNone, AddressNoCandidate, SchemaFedEx, "", ""},
		{"UPS 有效地址", upsAddressValid, AddressValid, SchemaUPS, "92656-8024", ClassificationResidential},
		{"UPS 无候选", upsAddressNone, AddressNoCandidate, SchemaUPS, "", ""},
		{"UPS 多候选", upsAddressAmbiguous, AddressAmbiguous, SchemaUPS, "", ""},
		{"无法识别", `{"foo": {}}`, AddressError, SchemaUnknown, "", ""},
		{"非法 JSON", `<html>`, AddressError, SchemaUnknown, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAddressValidation([]byte(tt.raw))
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantSchema, got.Schema)
			assert.Equal(t, tt.wantPostal, got.PostalCode)
			assert.Equal(t, tt.wantClass, got.Classification)
			assert.Equal(t, tt.wantStatus == AddressValid, got.IsValid())
		})
	}
}

func TestNormalizeAddressValidation_UPSValidFields(t *testing.T) {
	got := NormalizeAddressValidation([]byte(upsAddressValid))

	assert.Equal(t, "26601 ALISO CREEK RD", got.AddressLine)
	assert.Equal(t, "ALISO VIEJO", got.City)
	assert.Equal(t, "CA", got.Region)
	assert.Equal(t, "US", got.CountryCode)
	assert.JSONEq(t, upsAddressValid, string(got.Raw))
}

func TestNormalizeAddressValidation_AmbiguousCandidates(t *testing.T) {
	got := NormalizeAddressValidation([]byte(upsAddressAmbiguous))

	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "A", got.Candidates[0].City)
	assert.Equal(t, "B", got.Candidates[1].City)
	assert.False(t, got.IsValid())

	c, ok := got.Candidate()
	assert.True(t, ok)
	assert.Equal(t, "90001", c.PostalCode)
}

func TestNormalizeAddressValidation_UPSValidWithoutCandidate(t *testing.T) {
	got := NormalizeAddressValidation([]byte(`{"XAVResponse": {"ValidAddressIndicator": ""}}`))
	assert.Equal(t, AddressError, got.Status)
}

// ==================== 运费报价 ====================

func TestNormalizeRateQuote_FedEx(t *testing.T) {
	got := NormalizeRateQuote([]byte(fedexRateOK))

	require.True(t, got.Available)
	assert.Equal(t, SchemaFedEx, got.Schema)
	assert.Equal(t, "FedEx Ground", got.ServiceName)
	assert.True(t, got.TotalCharge.Equal(decimal.RequireFromString("24.75")))
	assert.Equal(t, "USD", got.Currency)
	require.NotNil(t, got.BillingWeight)
	assert.Equal(t, "LB", got.BillingWeight.Unit)
	assert.True(t, got.BillingWeight.Value.Equal(decimal.NewFromInt(10)))

	require.Len(t, got.LineItems, 3)
	assert.Equal(t, "Base charge", got.LineItems[0].Label)
	assert.Equal(t, "Fuel Surcharge", got.LineItems[1].Label)

	require.Len(t, got.Packages, 1)
	assert.Equal(t, 1, got.Packages[0].SequenceNo)
	assert.Equal(t, "$24.75", RenderAmount(got.Packages[0].TotalCharge))
}

func TestNormalizeRateQuote_UPS(t *testing.T) {
	got := NormalizeRateQuote([]byte(upsRateSingle))

	require.True(t, got.Available)
	assert.Equal(t, SchemaUPS, got.Schema)
	assert.Equal(t, "UPS Ground", got.ServiceName)
	assert.Equal(t, "$16.30", RenderAmount(&Money{Amount: got.TotalCharge, Currency: got.Currency}))
	assert.Equal(t, "LBS", got.BillingWeight.Unit)

	labels := make([]string, 0, len(got.LineItems))
	for _, item := range got.LineItems {
		labels = append(labels, item.Label)
	}
	// 零金额的 ServiceOptionsCharges 不计入明细
	assert.Equal(t, []string{"Transportation", "270 (FUEL)"}, labels)
}

func TestNormalizeRateQuote_UPSSingleObjectEqualsArray(t *testing.T) {
	single := NormalizeRateQuote([]byte(upsRateSingle))
	array := NormalizeRateQuote([]byte(upsRateArray))

	require.Len(t, single.Packages, 1)
	assert.Equal(t, array.Packages, single.Packages)
	assert.Equal(t, array.LineItems, single.LineItems)
	assert.True(t, array.TotalCharge.Equal(single.TotalCharge))
}

func TestNormalizeRateQuote_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"无法识别", `{"errors": [{"message": "bad"}]}`},
		{"FedEx 无报价", `{"output": {"rateReplyDetails": []}}`},
		{"UPS 缺少总价", `{"RateResponse": {"RatedShipment": {"Service": {"Code": "03"}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRateQuote([]byte(tt.raw))
			require.NotNil(t, got)
			assert.False(t, got.Available)
			assert.Empty(t, got.Packages)
		})
	}
}

// ==================== 运单确认 ====================

func TestNormalizeShipmentConfirmation_FedEx(t *testing.T) {
	got := NormalizeShipmentConfirmation([]byte(fedexShipmentOK))

	require.True(t, got.Available)
	assert.Equal(t, []string{"794953555571", "794953555582"}, got.TrackingNumbers)
	assert.Equal(t, "794953555571", got.MasterTrackingNumber)
	assert.Equal(t, "FedEx Ground", got.ServiceName)
	assert.Equal(t, "2024-03-04", got.ShipDate)
	assert.Equal(t, "$54.00", RenderAmount(got.TotalCharge))

	require.Len(t, got.Packages, 2)

	p1 := got.Packages[0]
	assert.Equal(t, 1, p1.SequenceNo)
	assert.Equal(t, "2024-03-07", p1.DeliveryDate)
	assert.Nil(t, p1.BaseRate, "baseRateAmount 0.00 视为不可用")
	assert.Equal(t, Unavailable, RenderAmount(p1.BaseRate))
	assert.True(t, p1.SurchargeTotal().Equal(decimal.RequireFromString("6.70")))
	require.Len(t, p1.Labels, 1)
	assert.Equal(t, "PDF", p1.Labels[0].Format)
	assert.Equal(t, "794953555571", p1.Labels[0].TrackingNumber)

	p2 := got.Packages[1]
	assert.Equal(t, "$21.40", RenderAmount(p2.BaseRate))
	assert.True(t, p2.SurchargeTotal().Equal(decimal.RequireFromString("4.50")))

	assert.True(t, got.SurchargeTotal().Equal(decimal.RequireFromString("11.20")))
	assert.Len(t, got.Labels(), 1)
}

func TestNormalizeShipmentConfirmation_FedExMismatchedArrays(t *testing.T) {
	raw := `{"output": {"transactionShipments": [{
	  "masterTrackingNumber": "M1",
	  "pieceResponses": [{"trackingNumber": "T1", "baseRateAmount": 5}],
	  "completedShipmentDetail": {"completedPackageDetails": [
	    {"packageRating": {"packageRateDetails": [{"surcharges": [{"description": "Fuel", "amount": 1}]}]}},
	    {"trackingIds": [{"trackingNumber": "T2"}], "packageRating": {"packageRateDetails": [{"surcharges": [{"description": "Fuel", "amount": 2}]}]}}
	  ]}
	}]}}`

	got := NormalizeShipmentConfirmation([]byte(raw))

	require.Len(t, got.Packages, 2)
	assert.Equal(t, "T1", got.Packages[0].TrackingNumber)
	assert.Equal(t, "T2", got.Packages[1].TrackingNumber)
	assert.Equal(t, 2, got.Packages[1].SequenceNo)
	assert.Equal(t, []string{"T1", "T2"}, got.TrackingNumbers)
}

func TestNormalizeShipmentConfirmation_UPS(t *testing.T) {
	got := NormalizeShipmentConfirmation([]byte(upsShipmentSingle))

	require.True(t, got.Available)
	assert.Equal(t, SchemaUPS, got.Schema)
	assert.Equal(t, []string{"1Z12345E0205271688"}, got.TrackingNumbers)
	assert.Equal(t, "$16.30", RenderAmount(got.TotalCharge))
	require.Len(t, got.Packages, 1)
	assert.Equal(t, "$15.10", RenderAmount(got.Packages[0].BaseRate))
	assert.True(t, got.SurchargeTotal().Equal(decimal.RequireFromString("1.20")))

	labels := got.Labels()
	require.Len(t, labels, 1)
	assert.Equal(t, "GIF", labels[0].Format)
	assert.Equal(t, "R0lGODlh", labels[0].Content)
}

func TestNormalizeShipmentConfirmation_Unrecognized(t *testing.T) {
	got := NormalizeShipmentConfirmation([]byte(`{"message": "gateway down"}`))

	assert.False(t, got.Available)
	assert.Equal(t, SchemaUnknown, got.Schema)
	assert.Empty(t, got.TrackingNumbers)
}

// ==================== 取消运单 ====================

func TestNormalizeVoidResult(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSuccess bool
		wantCode    string
		wantSchema  Schema
	}{
		{"FedEx 成功", fedexVoidOK, true, VoidStatusCancelled, SchemaFedEx},
		{"FedEx 失败带告警", fedexVoidFailed, false, "SHIPMENT.ALREADY.CANCELLED", SchemaFedEx},
		{"UPS 成功", upsVoidOK, true, "1", SchemaUPS},
		{"UPS 失败", `{"VoidShipmentResponse": {"Response": {"ResponseStatus": {"Code": "0", "Description": "Failure"}}}}`, false, "0", SchemaUPS},
		{"无法识别", `[]`, false, VoidStatusUnrecognized, SchemaUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVoidResult([]byte(tt.raw))
			assert.Equal(t, tt.wantSuccess, got.Success)
			assert.Equal(t, tt.wantCode, got.StatusCode)
			assert.Equal(t, tt.wantSchema, got.Schema)
			assert.NotEmpty(t, got.StatusDescription)
		})
	}
}

func TestNormalizeVoidResult_FedExFields(t *testing.T) {
	got := NormalizeVoidResult([]byte(fedexVoidFailed))

	assert.Equal(t, "v2", got.TransactionID)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, "WARNING", got.Alerts[0].Type)
	assert.Equal(t, "Already cancelled", got.StatusDescription)
}

// ==================== 展示 ====================

func TestRenderAmount(t *testing.T) {
	tests := []struct {
		name string
		in   *Money
		want string
	}{
		{"不可用", nil, "N/A"},
		{"美元", &Money{Amount: decimal.RequireFromString("12.5"), Currency: "USD"}, "$12.50"},
		{"无币种", &Money{Amount: decimal.NewFromInt(3)}, "$3.00"},
		{"其他币种", &Money{Amount: decimal.RequireFromString("7.1"), Currency: "EUR"}, "7.10 EUR"},
		{"零值仍显示", &Money{Amount: decimal.Zero, Currency: "USD"}, "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderAmount(tt.in))
		})
	}
}

func TestRenderWeight(t *testing.T) {
	assert.Equal(t, "N/A", RenderWeight(nil))
	assert.Equal(t, "5 LBS", RenderWeight(&Weight{Value: decimal.RequireFromString("5.0"), Unit: "LBS"}))
}
