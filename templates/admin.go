package templates

// FormList lists the forms known to the service.
const FormList = `
{{define "content"}}
	<div class="ui container">
		{{with .errors}}
			<div class="ui negative message">{{range .}}<p>{{.}}</p>{{end}}</div>
		{{end}}
		<table id="forms-table" class="ui unstackable fixed single line table">
			<tbody>
				{{range .forms}}
					<tr>
						<td class="name two wide">F{{.ID}}</td>
						<td class="name text bold six wide"><a href="/admin/forms/{{.ID}}">{{.Name}}</a></td>
						<td class="name four wide">{{.ActionBackend}}</td>
						<td class="name four wide"><a href="/forms/{{.ID}}">View</a></td>
					</tr>
				{{end}}
			</tbody>
		</table>
		<form class="ui form" action="/admin/forms" method="post" enctype="multipart/form-data">
			<h4 class="ui header">Import form</h4>
			<input type="file" name="definition" accept=".yaml,.yml" required>
			<button class="ui green button">Import</button>
		</form>
	</div>
{{end}}
`

// FormDetail shows the settings, element tree and notifications of a form
// with the editing controls.
const FormDetail = `
{{define "content"}}
	<div class="ui container">
		<h3 class="ui top attached header">{{.definition.Name}}</h3>
		<div class="ui attached segment">
			{{range .messages}}
				<div class="ui info message">{{.}}</div>
			{{end}}
			{{with .errors}}
				<div class="ui negative message">
					{{range $k, $v := .}}<p>{{$k}}: {{range $v}}{{.}} {{end}}</p>{{end}}
				</div>
			{{end}}
			{{ $def := .definition }}
			<form class="ui form" action="/admin/forms/{{$def.ID}}" method="post">
				<h4 class="ui header">Settings</h4>
				<div class="inline field"><label for="name">Name</label><input id="name" name="name" value="{{$def.Name}}" required></div>
				<div class="inline field"><label for="error_message">Error message</label><textarea id="error_message" name="error_message">{{$def.ErrorMessage}}</textarea></div>
				<div class="inline field"><label for="success_message">Success message</label><textarea id="success_message" name="success_message">{{$def.SuccessMessage}}</textarea></div>
				<div class="inline field">
					<label for="redirect_type">Redirect to</label>
					<select id="redirect_type" name="redirect_type">
						<option value="" {{if eq $def.RedirectType ""}}selected{{end}}>No redirect</option>
						<option value="redirect_to_page" {{if eq $def.RedirectType "redirect_to_page"}}selected{{end}}>Page</option>
						<option value="redirect_to_url" {{if eq $def.RedirectType "redirect_to_url"}}selected{{end}}>Absolute URL</option>
					</select>
				</div>
				<div class="inline field"><label for="redirect_page">Page</label><input id="redirect_page" name="redirect_page" value="{{$def.RedirectPage}}"></div>
				<div class="inline field"><label for="redirect_url">Absolute URL</label><input id="redirect_url" name="redirect_url" value="{{$def.RedirectURL}}"></div>
				<div class="inline field"><label for="negative_redirect_url">Negative redirect URL</label><input id="negative_redirect_url" name="negative_redirect_url" value="{{$def.NegativeRedirectURL}}"></div>
				<div class="inline field">
					<label for="condition_field">Condition field</label>
					<select id="condition_field" name="condition_field">
						<option value="">---------</option>
						{{range .fields}}<option value="{{.Value}}" {{if eq .Value $def.ConditionField}}selected{{end}}>{{.Label}}</option>{{end}}
					</select>
				</div>
				<div class="inline field"><label for="condition_value">Condition value</label><input id="condition_value" name="condition_value" value="{{$def.ConditionValue}}"></div>
				<div class="inline field"><label for="custom_classes">Custom classes</label><input id="custom_classes" name="custom_classes" value="{{$def.CustomClasses}}"></div>
				<div class="inline field">
					<label for="action_backend">Action backend</label>
					<select id="action_backend" name="action_backend">
						{{range .backends}}<option value="{{.Key}}" {{if eq .Key $def.ActionBackend}}selected{{end}}>{{.Name}}</option>{{end}}
					</select>
				</div>
				<div class="inline field"><label for="recipients">Recipients</label><textarea id="recipients" name="recipients">{{range $def.Recipients}}{{.}}
{{end}}</textarea></div>
				<button class="ui green button">Save</button>
			</form>

			<h4 class="ui header">Elements</h4>
			<ul class="ui list">
				{{range .nodes}}
					{{template "node" .}}
				{{end}}
			</ul>
			<form class="ui form" action="/admin/forms/{{$def.ID}}/elements" method="post">
				<h4 class="ui header">Add element</h4>
				<select name="kind">
					{{range .kinds}}<option value="{{.}}">{{.Name}}</option>{{end}}
				</select>
				<select name="parent">
					{{range .containers}}<option value="{{.ID}}">{{.Kind.Name}} {{.Legend}}</option>{{end}}
				</select>
				<input name="label" placeholder="Label">
				<input name="name" placeholder="Field name">
				<input name="options" placeholder="Options (comma separated)">
				<input name="min_value" placeholder="Min value">
				<input name="max_value" placeholder="Max value">
				<div class="ui checkbox"><input type="checkbox" name="required" value="on" checked><label>Required</label></div>
				<button class="ui green button">Add</button>
			</form>

			<h4 class="ui header">Email notifications</h4>
			<table id="notifications-table" class="ui table">
				<tbody>
					{{range .notifications}}
						<tr>
							<td>{{.}}</td>
							<td>{{.Subject}}</td>
							<td>
								<form action="/admin/notifications/{{.ID}}/delete" method="post">
									<button class="ui mini red button">Delete</button>
								</form>
							</td>
						</tr>
					{{end}}
				</tbody>
			</table>
			<form class="ui form" action="/admin/forms/{{$def.ID}}/notifications" method="post">
				<select name="theme">
					{{range .themes}}<option value="{{.}}">{{.}}</option>{{end}}
				</select>
				<input name="to_name" placeholder="Recipient name">
				<input name="to_email" placeholder="Recipient email">
				<input name="to_user" placeholder="Staff member (Name &lt;email&gt;)">
				<input name="from_name" placeholder="Sender name">
				<input name="from_email" placeholder="Sender email">
				<input name="subject" placeholder="Subject">
				<textarea name="body_text" placeholder="Text body"></textarea>
				<textarea name="body_html" placeholder="HTML body"></textarea>
				<button class="ui green button">Add notification</button>
			</form>
			<div class="ui message">
				<div class="header">Available variables</div>
				<ul>{{range .variables}}<li>${{"{"}}{{.Key}}{{"}"}}: {{.Label}}</li>{{end}}</ul>
			</div>

			<form action="/admin/forms/{{$def.ID}}/delete" method="post">
				<button class="ui red button">Delete form</button>
			</form>
		</div>
	</div>
{{end}}

{{define "node"}}
	<li>
		E{{.Node.ID}} {{.Node.Kind.Name}}{{with .Label}}: {{.}}{{end}}{{with .Name}} ({{.}}){{end}}
		<form class="ui inline form" action="/admin/elements/{{.Node.ID}}/delete" method="post">
			<button class="ui mini red button">Delete</button>
		</form>
		<form class="ui inline form" action="/admin/elements/{{.Node.ID}}/move" method="post">
			<input name="parent" placeholder="New parent ID">
			<input name="position" placeholder="Position">
			<button class="ui mini button">Move</button>
		</form>
		{{with .Children}}
			<ul>
				{{range .}}{{template "node" .}}{{end}}
			</ul>
		{{end}}
	</li>
{{end}}
`
