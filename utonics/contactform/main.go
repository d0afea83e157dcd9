// contactform runs a form service with a single contact form read from
// contact.yaml.  Configuration comes from FORMTONIC_* environment variables.
package main

import (
	"log"

	"github.com/G-Node/formtonic/formtonic"
)

func main() {
	config, err := formtonic.ConfigFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if len(config.FormFiles) == 0 {
		config.FormFiles = []string{"contact.yaml"}
	}
	srv, err := formtonic.NewService(config, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
	defer srv.Stop()
	srv.WaitForInterrupt()
}
