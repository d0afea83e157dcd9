package templates

// Fail renders error responses: the status line and the message returned to
// the visitor.
var Fail = `
{{ define "content" }}
	<div class="ui container">
		<div class="ui negative message">
			<div class="header">{{ .StatusCode }}: {{ .StatusText }}</div>
			<p>{{ .Message }}</p>
		</div>
		<a class="ui basic button" href="javascript:history.back()">Back</a>
	</div>
{{ end }}
`
