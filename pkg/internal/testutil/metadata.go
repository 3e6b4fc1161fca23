/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"strings"
)

const universityDegreeMetadata = `{
  "credential_issuer": "ISSUER_URI",
  "credential_endpoint": "ISSUER_URI/credential",
  "token_endpoint": "ISSUER_URI/oidc/token",
  "display": [
    {"name": "Example University", "locale": "en-US", "logo": {"uri": "https://example.edu/logo.png"}},
    {"name": "Université Exemple", "locale": "fr-FR"}
  ],
  "credential_configurations_supported": {
    "UniversityDegreeCredential_jwt_vc_json": {
      "format": "jwt_vc_json",
      "credential_definition": {
        "type": ["VerifiableCredential", "UniversityDegreeCredential"],
        "credentialSubject": {
          "given_name": {
            "display": [{"name": "Given Name", "locale": "en-US"}, {"name": "Prénom", "locale": "fr-FR"}],
            "value_type": "string",
            "order": 1
          },
          "family_name": {
            "display": [{"name": "Surname", "locale": "en-US"}, {"name": "Nom", "locale": "fr-FR"}],
            "value_type": "string",
            "order": 0
          },
          "degree": {
            "display": [{"name": "Degree", "locale": "en-US"}],
            "value_type": "string"
          },
          "gpa": {
            "display": [{"name": "GPA", "locale": "en-US"}],
            "value_type": "number"
          },
          "student_id": {
            "display": [{"name": "Student ID", "locale": "en-US"}],
            "value_type": "string",
            "mask": "regex(^(.*).{4}$)"
          },
          "pin": {
            "display": [{"name": "PIN", "locale": "en-US"}],
            "value_type": "string",
            "mask": "all"
          }
        }
      },
      "display": [
        {
          "name": "University Degree",
          "locale": "en-US",
          "logo": {"url": "https://example.edu/degree.png", "alt_text": "degree logo"},
          "background_color": "#12107c",
          "text_color": "#FFFFFF"
        },
        {"name": "Diplôme universitaire", "locale": "fr-FR"}
      ]
    },
    "VerifiedEmployee_jwt_vc_json": {
      "format": "jwt_vc_json",
      "credential_definition": {
        "type": ["VerifiableCredential", "VerifiedEmployee"],
        "credentialSubject": {
          "displayName": {"display": [{"name": "Employee", "locale": "en-US"}], "value_type": "string"}
        }
      },
      "display": [{"name": "Verified Employee", "locale": "en-US"}]
    }
  }
}`

// UniversityDegreeMetadata returns credential issuer metadata for issuerURI describing
// UniversityDegreeCredential and VerifiedEmployee credentials.
func UniversityDegreeMetadata(issuerURI string) string {
	return strings.ReplaceAll(universityDegreeMetadata, "ISSUER_URI", issuerURI)
}

// UniversityDegreeSubject returns a credential subject matching UniversityDegreeMetadata.
func UniversityDegreeSubject() map[string]interface{} {
	return map[string]interface{}{
		"given_name":  "Alice",
		"family_name": "Smith",
		"degree":      "MIT",
		"gpa":         3.9,
		"student_id":  "S-1234567890",
		"pin":         "4242",
	}
}
