package templates

// ExportQuery is the first step of the export wizard: pick the form,
// language and date range.
const ExportQuery = `
{{define "content"}}
	<div class="ui container">
		<form class="ui form" action="/admin/export" method="post">
			<h3 class="ui top attached header">Export</h3>
			<div class="ui attached segment">
				{{with .errors}}
					<div class="ui negative message">{{range .}}<p>{{.}}</p>{{end}}</div>
				{{end}}
				{{ $query := .query }}
				<div class="required inline field">
					<label for="form_name">Form name</label>
					<select id="form_name" name="form_name" required>
						{{range .names}}
							<option value="{{.}}" {{if eq . $query.FormName}}selected{{end}}>{{.}}</option>
						{{end}}
					</select>
				</div>
				<div class="required inline field">
					<label for="language">Language</label>
					<select id="language" name="language" required>
						{{range .languages}}
							<option value="{{.}}" {{if eq . $query.Language}}selected{{end}}>{{.}}</option>
						{{end}}
					</select>
				</div>
				<div class="inline field">
					<label for="from_date">From date</label>
					<input type="date" id="from_date" name="from_date" value="{{.from_date}}">
				</div>
				<div class="inline field">
					<label for="to_date">To date</label>
					<input type="date" id="to_date" name="to_date" value="{{.to_date}}">
				</div>
				<div class="inline field">
					<label></label>
					<button class="ui green button">Next</button>
				</div>
			</div>
		</form>
	</div>
{{end}}
`

// ExportFields is the second step of the export wizard: pick the fields and
// the file format.
const ExportFields = `
{{define "content"}}
	<div class="ui container">
		<form class="ui form" action="/admin/export/download" method="post">
			<h3 class="ui top attached header">Export {{.query.FormName}}</h3>
			<div class="ui attached segment">
				{{with .errors}}
					<div class="ui negative message">{{range .}}<p>{{.}}</p>{{end}}</div>
				{{end}}
				<input type="hidden" name="form_name" value="{{.query.FormName}}">
				<input type="hidden" name="language" value="{{.query.Language}}">
				<input type="hidden" name="from_date" value="{{.from_date}}">
				<input type="hidden" name="to_date" value="{{.to_date}}">
				<h4 class="ui header">Current fields</h4>
				{{range .current}}
					<div class="ui checkbox">
						<input type="checkbox" name="current_fields" value="{{.ID}}" checked>
						<label>{{.Label}}</label>
					</div>
				{{end}}
				{{with .old}}
					<h4 class="ui header">Old fields</h4>
					{{range .}}
						<div class="ui checkbox">
							<input type="checkbox" name="old_fields" value="{{.ID}}">
							<label>{{.Label}}</label>
						</div>
					{{end}}
				{{end}}
				<div class="inline field">
					<label for="file_type">Format</label>
					<select id="file_type" name="file_type">
						{{range .formats}}<option value="{{.}}">{{.}}</option>{{end}}
					</select>
				</div>
				<div class="inline field">
					<label></label>
					<button class="ui green button">Export</button>
				</div>
			</div>
		</form>
	</div>
{{end}}
`
