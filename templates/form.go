package templates

// Form renders a form tree.  Expects "definition", "elements" (form views),
// "errors" (non-field errors), "language", "action" and "has_submit".
const Form = `
{{ define "content" }}
			<div class="ginform">
				<div class="ui middle very relaxed page grid">
					<div class="column">
						<form class="ui form {{.definition.CustomClasses}}" action="{{.action}}" method="post" enctype="multipart/form-data">
							<input type="hidden" name="language" value="{{.language}}">
							<input type="hidden" name="form_plugin_id" value="{{.definition.ID}}">
							<h3 class="ui top attached header">
								{{.definition.Name}}
							</h3>
							<div class="ui attached segment">
								{{with .errors}}
									<div class="ui negative message">
										{{range .}}<p>{{.}}</p>{{end}}
									</div>
								{{end}}
								{{range .elements}}
									{{template "element" .}}
								{{end}}
								{{if not .has_submit}}
									<div class="inline field">
										<label></label>
										<button class="ui green button" type="submit">Submit</button>
									</div>
								{{end}}
							</div>
						</form>
					</div>
				</div>
			</div>
{{ end }}

{{ define "element" }}
	{{ if eq .Kind "Fieldset" }}
		<fieldset class="{{.Node.CustomClasses}}">
			{{with .Node.Legend}}<legend>{{.}}</legend>{{end}}
			{{range .Children}}
				{{template "element" .}}
			{{end}}
		</fieldset>
	{{ else if eq .Kind "SubmitButton" }}
		<div class="inline field">
			<label></label>
			<button class="ui green button {{.Node.CustomClasses}}" type="submit">{{or .Node.Label "Submit"}}</button>
		</div>
	{{ else if eq .Kind "Text" }}
		<div class="ui basic segment">{{.Node.Body}}</div>
	{{ else if eq .Kind "HiddenField" }}
		<input type="hidden" id="{{.ID}}" name="{{.Name}}" value="{{.Value}}">
	{{ else }}
		<div class="inline {{if .Required}}required{{end}} field {{if .Errors}}error{{end}} {{.Node.CustomClasses}}">
			<label for="{{.ID}}">{{.Label}}</label>
			{{ if eq .Kind "TextAreaField" }}
				<textarea id="{{.ID}}" name="{{.Name}}" placeholder="{{.Node.Placeholder}}" {{with .Node.Columns}}cols="{{.}}"{{end}} {{with .Node.Rows}}rows="{{.}}"{{end}} {{if .Required}}required{{end}}>{{.Value}}</textarea>
			{{ else if eq .Kind "SelectField" }}
				{{ $view := . }}
				<select id="{{.ID}}" name="{{.Name}}" {{if .Required}}required{{end}}>
					{{if not .Required}}<option value="">---------</option>{{end}}
					{{range .Node.Options}}
						<option value="{{.Value}}" {{if $view.Selected .Value}}selected{{end}}>{{.Value}}</option>
					{{end}}
				</select>
			{{ else if eq .Kind "MultipleSelectField" }}
				{{ $view := . }}
				{{range $idx, $opt := .Node.Options}}
					<div class="ui checkbox">
						<input type="checkbox" id="{{$view.ID}}_{{$idx}}" name="{{$view.Name}}" value="{{$opt.Value}}" {{if $view.Selected $opt.Value}}checked{{end}}>
						<label for="{{$view.ID}}_{{$idx}}">{{$opt.Value}}</label>
					</div>
				{{end}}
			{{ else if eq .Kind "RadioSelectField" }}
				{{ $view := . }}
				{{range $idx, $opt := .Node.Options}}
					<div class="ui radio checkbox">
						<input type="radio" id="{{$view.ID}}_{{$idx}}" name="{{$view.Name}}" value="{{$opt.Value}}" {{if $view.Selected $opt.Value}}checked{{end}}>
						<label for="{{$view.ID}}_{{$idx}}">{{$opt.Value}}</label>
					</div>
				{{end}}
			{{ else if eq .Kind "BooleanField" }}
				<input type="checkbox" id="{{.ID}}" name="{{.Name}}" value="on" {{if .Checked}}checked{{end}}>
			{{ else if eq .InputType "file" }}
				<input type="file" id="{{.ID}}" name="{{.Name}}" {{if eq .Kind "ImageField"}}accept="image/*"{{end}} {{if .Required}}required{{end}}>
			{{ else }}
				<input type="{{.InputType}}" id="{{.ID}}" name="{{.Name}}" value="{{.Value}}" placeholder="{{.Node.Placeholder}}" {{if .Required}}required{{end}}>
			{{ end }}
			{{with .HelpText}}<span class="help">{{.}}</span>{{end}}
			{{range .Errors}}
				<div class="ui basic red pointing prompt label">{{.}}</div>
			{{end}}
		</div>
	{{ end }}
{{ end }}
`

// Success is shown after a successful submission of a form without a
// redirect.
const Success = `
{{ define "content" }}
			<div class="ui container">
				<div class="ui positive message">
					<div class="header">{{.definition.Name}}</div>
					<p>{{or .message "The form has been sent."}}</p>
				</div>
			</div>
{{ end }}
`
