package templates

// NotificationText is the plain text body of the mail sent to the staff
// recipients of a form (text/template).
const NotificationText = `A new submission was received for the form "{{.FormName}}".
{{range .Data}}
{{.Label}}: {{.Value}}{{end}}
`

// NotificationHTML is the HTML body of the staff notification
// (html/template).
const NotificationHTML = `<p>A new submission was received for the form <strong>{{.FormName}}</strong>.</p>
<table>
{{range .Data}}	<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
`

// ConfirmationText is the body of the mail sent to visitors who entered
// their address in an e-mail field with notifications enabled.
const ConfirmationText = `{{with .Body}}{{.}}
{{end}}
{{range .Data}}{{.Label}}: {{.Value}}
{{end}}`

// ThemeDefault wraps the HTML body of configured notifications
// (html/template).  Expects "Subject" and "Body".
const ThemeDefault = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family: sans-serif;">
{{.Body}}
</body>
</html>
`
