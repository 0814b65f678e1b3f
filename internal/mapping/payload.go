package mapping

import (
	"strings"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

const (
	odataSetting        = "#microsoft.graph.deviceManagementConfigurationSetting"
	odataChoiceInstance = "#microsoft.graph.deviceManagementConfigurationChoiceSettingInstance"
	odataSimpleInstance = "#microsoft.graph.deviceManagementConfigurationSimpleSettingInstance"
	odataChoiceValue    = "#microsoft.graph.deviceManagementConfigurationChoiceSettingValue"
	odataStringValue    = "#microsoft.graph.deviceManagementConfigurationStringSettingValue"
	odataIntegerValue   = "#microsoft.graph.deviceManagementConfigurationIntegerSettingValue"
)

// BuildSettingPayload builds the Settings Catalog setting for a chosen
// candidate from the legacy setting's captured state and values. It is pure.
//
// Choice candidates (and unknown kinds) get "{id}_1" when enabled and
// "{id}_0" when disabled; an unknown state counts as enabled, since the
// setting was configured. Simple candidates take the first scalar value and
// return nil when the legacy setting captured none.
func BuildSettingPayload(c models.CandidateSetting, source models.LegacySettingValue) *models.SettingPayload {
	if c.ID == "" {
		return nil
	}
	if c.Kind == models.KindSimple {
		return simplePayload(c.ID, source)
	}
	return choicePayload(c.ID, source.Enabled)
}

func choicePayload(definitionID string, state models.EnabledState) *models.SettingPayload {
	suffix := "_1"
	if state == models.StateDisabled {
		suffix = "_0"
	}
	return &models.SettingPayload{
		ODataType: odataSetting,
		SettingInstance: models.SettingInstance{
			ODataType:           odataChoiceInstance,
			SettingDefinitionID: definitionID,
			ChoiceSettingValue: &models.ChoiceSettingValue{
				ODataType: odataChoiceValue,
				Value:     definitionID + suffix,
				Children:  []models.SettingInstance{},
			},
		},
	}
}

func simplePayload(definitionID string, source models.LegacySettingValue) *models.SettingPayload {
	pv, ok := source.FirstScalar()
	if !ok {
		return nil
	}

	value := &models.SimpleSettingValue{ODataType: odataStringValue}
	switch pv.Kind {
	case models.PresentationString:
		value.Value = models.StringScalar(pv.String)
	case models.PresentationNumber:
		value.ODataType = odataIntegerValue
		value.Value = models.IntegerScalar(pv.Number)
	case models.PresentationBoolean:
		value.ODataType = odataIntegerValue
		if pv.Boolean {
			value.Value = models.IntegerScalar(1)
		} else {
			value.Value = models.IntegerScalar(0)
		}
	case models.PresentationList:
		value.Value = models.StringScalar(strings.Join(pv.List, ","))
	}

	return &models.SettingPayload{
		ODataType: odataSetting,
		SettingInstance: models.SettingInstance{
			ODataType:           odataSimpleInstance,
			SettingDefinitionID: definitionID,
			SimpleSettingValue:  value,
		},
	}
}
