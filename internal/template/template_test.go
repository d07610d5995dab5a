package template_test

import (
	"reflect"
	"regexp"
	"testing"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/template"
)

var leftover = regexp.MustCompile(`\{\{[^}]*\}\}`)

func TestReplace(t *testing.T) {
	tests := []struct {
		name    string
		content string
		vars    template.Variables
		want    string
	}{
		{
			name:    "known variables",
			content: "Hello {{firstName}}, welcome to {{businessName}}!",
			vars:    template.Variables{"firstName": "John", "businessName": "Sydney Plumbing"},
			want:    "Hello John, welcome to Sydney Plumbing!",
		},
		{
			name:    "unknown variable deleted",
			content: "Hello {{firstName}}, your {{missingVar}} is ready",
			vars:    template.Variables{"firstName": "John"},
			want:    "Hello John, your  is ready",
		},
		{
			name:    "padding and case",
			content: "Hi {{ FIRSTNAME }} / {{\tfirstname\t}}",
			vars:    template.Variables{"firstName": "Ann"},
			want:    "Hi Ann / Ann",
		},
		{
			name:    "value is literal",
			content: "Price: {{price}}",
			vars:    template.Variables{"price": "$1 ${x} \\1"},
			want:    "Price: $1 ${x} \\1",
		},
		{
			name:    "empty token removed",
			content: "a{{}}b{{  }}c",
			vars:    nil,
			want:    "abc",
		},
		{
			name:    "nested braces",
			content: "x{{{{inner}}}}y",
			vars:    template.Variables{},
			want:    "x}}y",
		},
		{
			name:    "empty value is still a substitution",
			content: "[{{lastName}}]",
			vars:    template.Variables{"lastName": ""},
			want:    "[]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := template.Replace(tc.content, tc.vars)
			if got != tc.want {
				t.Errorf("Replace() = %q, want %q", got, tc.want)
			}
			if leftover.MatchString(got) {
				t.Errorf("output still has a token: %q", got)
			}
			if again := template.Replace(tc.content, tc.vars); again != got {
				t.Errorf("Replace is not deterministic: %q vs %q", got, again)
			}
		})
	}
}

func TestReplaceValueContainingToken(t *testing.T) {
	got := template.Replace("{{a}}", template.Variables{"a": "{{b}}", "b": "B"})
	if leftover.MatchString(got) {
		t.Fatalf("output still has a token: %q", got)
	}
}

func TestExtract(t *testing.T) {
	got := template.Extract("{{ firstName }} {{city}} {{firstName}} {{ }} {{state}}{{city}}")
	want := []string{"firstName", "city", "state"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}

	if got := template.Extract("no tokens here"); len(got) != 0 {
		t.Errorf("expected no names, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	content := "{{firstName}} {{website}} {{senderName}} {{Website}}"
	vars := template.Variables{"firstName": "John", "senderName": ""}

	got := template.Validate(content, vars)
	want := []string{"website", "Website"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate() = %v, want %v", got, want)
	}

	extracted := template.Extract(content)
	for _, name := range got {
		found := false
		for _, e := range extracted {
			if e == name {
				found = true
			}
		}
		if !found {
			t.Errorf("%q is not an extracted name", name)
		}
	}
}

func TestPreview(t *testing.T) {
	got := template.Preview("Hi {{firstName}} from {{senderCompany}}{{unknown}}")
	if got != "Hi John from Local Lead AU" {
		t.Errorf("Preview() = %q", got)
	}
}

func TestBuild(t *testing.T) {
	lead := &model.Lead{
		BusinessName: "Sydney Plumbing Services",
		ContactName:  model.Ptr("John van der Berg"),
		Email:        model.Ptr("john@sydneyplumbing.com.au"),
		City:         model.Ptr("Sydney"),
	}
	org := &model.Organisation{
		Name:              "Local Lead AU",
		Website:           model.Ptr("https://localleadau.com"),
		State:             model.Ptr("NSW"),
		LeadHandlingEmail: model.Ptr("leads@localleadau.com"),
		LeadHandlingSMS:   model.Ptr("+61 2 9876 5432"),
	}

	vars, err := template.Build(template.Data{Lead: template.FromLead(lead), Organisation: template.FromOrganisation(org)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	expect := map[string]string{
		"firstName":     "John",
		"lastName":      "van der Berg",
		"fullName":      "John van der Berg",
		"businessName":  "Sydney Plumbing Services",
		"email":         "john@sydneyplumbing.com.au",
		"city":          "Sydney",
		"senderName":    "Local Lead AU",
		"senderCompany": "Local Lead AU",
		"senderEmail":   "leads@localleadau.com",
		"senderPhone":   "+61 2 9876 5432",
		"senderWebsite": "https://localleadau.com",
		"senderState":   "NSW",
	}
	for k, v := range expect {
		if vars[k] != v {
			t.Errorf("%s = %q, want %q", k, vars[k], v)
		}
	}
	for _, undefined := range []string{"phone", "website", "address", "state", "senderCity"} {
		if _, ok := vars[undefined]; ok {
			t.Errorf("%s should be undefined", undefined)
		}
	}
}

func TestBuildUserOverridesSender(t *testing.T) {
	vars, err := template.Build(template.Data{
		Prospect:     &template.Recipient{BusinessName: "Acme"},
		Organisation: template.Sender{Name: "Org", LeadHandlingEmail: "org@x.com"},
		User:         &template.User{Name: "Sarah Johnson", Email: "sarah@x.com"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if vars["senderName"] != "Sarah Johnson" || vars["senderEmail"] != "sarah@x.com" {
		t.Errorf("user should override sender fields: %v", vars)
	}
	if vars["firstName"] != "" || vars["lastName"] != "" {
		t.Errorf("missing contact name should give empty first/last: %v", vars)
	}
}

func TestBuildRequiresRecipient(t *testing.T) {
	_, err := template.Build(template.Data{Organisation: template.Sender{Name: "Org"}})
	if !appErrors.IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
