// labsignup runs a form service with a lab sign-up form defined in code.
// Settings are read from labsignup.yaml on top of the environment.
package main

import (
	"log"

	"github.com/G-Node/formtonic/formtonic"
	"github.com/G-Node/formtonic/formtonic/form"
)

func intp(v int) *int {
	return &v
}

func signupForm() (*form.Definition, *form.Node) {
	def := &form.Definition{
		Name:                "Lab sign-up",
		SuccessMessage:      "Your request has been sent to the lab administrators.",
		ConditionField:      "role",
		ConditionValue:      "Visitor",
		NegativeRedirectURL: "https://example.org/visitors",
		Recipients:          []string{"Lab admins <lab-admins@example.org>"},
	}
	root := &form.Node{Kind: form.FormPlugin}

	person := &form.Node{Kind: form.Fieldset, Legend: "Person"}
	root.Adopt(person)
	person.Adopt(&form.Node{Kind: form.TextField, Name: "name", Label: "Full name", Required: true, MaxValue: intp(100)})
	person.Adopt(&form.Node{Kind: form.EmailField, Name: "email", Label: "E-mail", Required: true, SendNotification: true, EmailSubject: "Lab sign-up received"})
	person.Adopt(&form.Node{
		Kind:     form.RadioSelectField,
		Name:     "role",
		Label:    "Role",
		Required: true,
		Options:  []form.Option{{Value: "Student", Default: true}, {Value: "Researcher"}, {Value: "Visitor"}},
	})

	project := &form.Node{Kind: form.Fieldset, Legend: "Project"}
	root.Adopt(project)
	project.Adopt(&form.Node{Kind: form.TextField, Name: "project", Label: "Project name", Required: true, HelpText: "Must not already exist"})
	project.Adopt(&form.Node{
		Kind:     form.MultipleSelectField,
		Name:     "resources",
		Label:    "Resources",
		MinValue: intp(1),
		Options:  []form.Option{{Value: "Data storage"}, {Value: "Compute"}, {Value: "Microscopes"}},
	})
	project.Adopt(&form.Node{Kind: form.DateField, Name: "start", Label: "Start date"})
	project.Adopt(&form.Node{Kind: form.ImageField, Name: "photo", Label: "Badge photo", MaxWidth: 800, MaxHeight: 800, HelpText: "At most MAXWIDTH x MAXHEIGHT pixels"})
	root.Adopt(&form.Node{Kind: form.BooleanField, Name: "terms", Label: "I accept the lab rules", Required: true})
	root.Adopt(&form.Node{Kind: form.SubmitButton, Label: "Sign up"})
	return def, root
}

func main() {
	config, err := formtonic.LoadConfig("labsignup.yaml")
	if err != nil {
		log.Fatal(err)
	}
	srv, err := formtonic.NewService(config, nil)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := srv.EnsureForm(signupForm()); err != nil {
		log.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
	defer srv.Stop()
	srv.WaitForInterrupt()
}
