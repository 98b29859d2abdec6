// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typemeta

// R4Lite returns lookup tables covering the subset of the R4 definitions
// used by the examples and tests. Production deployments build Tables from
// the published definition files instead; the shape is identical.
func R4Lite() Tables {
	return Tables{
		Aliases: map[string]string{
			// Primitive aliases resolve to their system type.
			"code":         "string",
			"id":           "string",
			"markdown":     "string",
			"uri":          "string",
			"url":          "string",
			"canonical":    "string",
			"oid":          "string",
			"uuid":         "string",
			"base64Binary": "string",
			"unsignedInt":  "integer",
			"positiveInt":  "integer",
			"instant":      "dateTime",

			// Canonical names map to themselves.
			"string":   "string",
			"boolean":  "boolean",
			"integer":  "integer",
			"decimal":  "decimal",
			"date":     "date",
			"dateTime": "dateTime",
			"time":     "time",
			"Quantity": "Quantity",

			// Complex and resource types.
			"Element":         "Element",
			"BackboneElement": "BackboneElement",
			"Resource":        "Resource",
			"DomainResource":  "DomainResource",
			"HumanName":       "HumanName",
			"Address":         "Address",
			"Identifier":      "Identifier",
			"ContactPoint":    "ContactPoint",
			"CodeableConcept": "CodeableConcept",
			"Coding":          "Coding",
			"Period":          "Period",
			"Reference":       "Reference",
			"Extension":       "Extension",
			"Patient":         "Patient",
			"Observation":     "Observation",
			"Condition":       "Condition",
			"Encounter":       "Encounter",
		},
		Supertypes: map[string][]string{
			"Patient":         {"DomainResource"},
			"Observation":     {"DomainResource"},
			"Condition":       {"DomainResource"},
			"Encounter":       {"DomainResource"},
			"DomainResource":  {"Resource"},
			"HumanName":       {"Element"},
			"Address":         {"Element"},
			"Identifier":      {"Element"},
			"ContactPoint":    {"Element"},
			"CodeableConcept": {"Element"},
			"Coding":          {"Element"},
			"Period":          {"Element"},
			"Reference":       {"Element"},
			"Extension":       {"Element"},
			"Quantity":        {"Element"},
			"BackboneElement": {"Element"},
		},
		ArrayElements: map[string]map[string]bool{
			"Patient": {
				"name":          true,
				"telecom":       true,
				"address":       true,
				"identifier":    true,
				"contact":       true,
				"extension":     true,
				"birthDate":     false,
				"gender":        false,
				"active":        false,
				"deceased":      false,
				"multipleBirth": false,
			},
			"HumanName": {
				"given":  true,
				"prefix": true,
				"suffix": true,
				"family": false,
				"use":    false,
				"text":   false,
				"period": false,
			},
			"Address": {
				"line":       true,
				"city":       false,
				"state":      false,
				"postalCode": false,
				"use":        false,
			},
			"Observation": {
				"category":      true,
				"component":     true,
				"identifier":    true,
				"extension":     true,
				"code":          false,
				"status":        false,
				"subject":       false,
				"valueQuantity": false,
				"effective":     false,
			},
			"CodeableConcept": {
				"coding": true,
				"text":   false,
			},
			"Coding": {
				"system":  false,
				"code":    false,
				"display": false,
			},
			"Quantity": {
				"value":  false,
				"unit":   false,
				"system": false,
				"code":   false,
			},
			"Extension": {
				"extension":   true,
				"url":         false,
				"valueString": false,
				"valueCode":   false,
			},
			"Patient.Contact": {
				"relationship": true,
				"name":         false,
				"gender":       false,
			},
			"Observation.Component": {
				"code":          false,
				"valueQuantity": false,
			},
		},
		ElementTypes: map[string]map[string]string{
			"Patient": {
				"name":       "HumanName",
				"telecom":    "ContactPoint",
				"address":    "Address",
				"identifier": "Identifier",
				"contact":    "Patient.Contact",
				"extension":  "Extension",
				"birthDate":  "date",
				"gender":     "code",
				"active":     "boolean",
			},
			"HumanName": {
				"given":  "string",
				"prefix": "string",
				"suffix": "string",
				"family": "string",
				"use":    "code",
				"text":   "string",
				"period": "Period",
			},
			"Address": {
				"line":       "string",
				"city":       "string",
				"state":      "string",
				"postalCode": "string",
				"use":        "code",
			},
			"Observation": {
				"category":      "CodeableConcept",
				"component":     "Observation.Component",
				"identifier":    "Identifier",
				"extension":     "Extension",
				"code":          "CodeableConcept",
				"status":        "code",
				"subject":       "Reference",
				"valueQuantity": "Quantity",
				"effective":     "dateTime",
			},
			"CodeableConcept": {
				"coding": "Coding",
				"text":   "string",
			},
			"Coding": {
				"system":  "uri",
				"code":    "code",
				"display": "string",
			},
			"Quantity": {
				"value":  "decimal",
				"unit":   "string",
				"system": "uri",
				"code":   "code",
			},
			"Extension": {
				"extension":   "Extension",
				"url":         "uri",
				"valueString": "string",
				"valueCode":   "code",
			},
			"Patient.Contact": {
				"relationship": "CodeableConcept",
				"name":         "HumanName",
				"gender":       "code",
			},
			"Observation.Component": {
				"code":          "CodeableConcept",
				"valueQuantity": "Quantity",
			},
		},
		Backbones: map[string]bool{
			"Patient.Contact":       true,
			"Observation.Component": true,
		},
		ProfileBases: map[string]string{
			"bp":                "Observation",
			"bodyweight":        "Observation",
			"bodyheight":        "Observation",
			"vitalsigns":        "Observation",
			"us-core-patient":   "Patient",
			"uk-core-patient":   "Patient",
			"heartrate":         "Observation",
			"oxygensat":         "Observation",
			"resprate":          "Observation",
			"triglyceride":      "Observation",
			"cholesterol":       "Observation",
			"devicemetricobs":   "Observation",
			"observation-vital": "Observation",
		},
	}
}
