package formtonic

import (
	"net/http"

	"golang.org/x/text/language"
)

// requestLanguage picks the language of a submission: the language posted
// with the form if it is supported, else the best match for the
// Accept-Language header.
func (srv *Service) requestLanguage(r *http.Request, posted string) string {
	if posted != "" {
		if tag, err := language.Parse(posted); err == nil {
			for _, supported := range srv.tags {
				if supported == tag {
					return supported.String()
				}
			}
		}
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return srv.tags[0].String()
	}
	_, idx, _ := srv.matcher.Match(tags...)
	return srv.tags[idx].String()
}

// Languages returns the supported languages.
func (srv *Service) Languages() []string {
	langs := make([]string, len(srv.tags))
	for idx, tag := range srv.tags {
		langs[idx] = tag.String()
	}
	return langs
}
