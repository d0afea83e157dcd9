package templates

// SubmissionList template for displaying stored submissions in a list.
const SubmissionList = `
{{define "content"}}
	<div class="repository file list">
		<div class="ui container">
			<form class="ui form" action="/admin/submissions" method="get">
				<div class="inline fields">
					<select name="name">
						<option value="">All forms</option>
						{{ $name := .name }}
						{{range .names}}
							<option value="{{.}}" {{if eq . $name}}selected{{end}}>{{.}}</option>
						{{end}}
					</select>
					<input name="language" value="{{.language}}" placeholder="language">
					<button class="ui button">Filter</button>
				</div>
			</form>
			<table id="submissions-table" class="ui unstackable fixed single line table">
				<tbody>
					{{range $sub := .submissions}}
						<tr>
							<td class="name two wide">S{{$sub.ID}}</td>
							<td class="name text bold six wide"><a href="/admin/submissions/{{$sub.ID}}">{{$sub.Name}}</a></td>
							<td class="name two wide">{{$sub.Language}}</td>
							<td class="name four wide">{{$sub.SentAt.Format "2006-01-02 15:04:05"}}</td>
						</tr>
					{{end}}
				</tbody>
			</table>
		</div>
	</div>
{{end}}
`

// SubmissionView shows the data and recipients of a single submission.
const SubmissionView = `
{{define "content"}}
	<div class="ui container">
		<h3 class="ui top attached header">{{.submission.Name}}</h3>
		<div class="ui attached segment">
			<table class="ui definition table">
				<tbody>
					{{range .data}}
						<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
					{{end}}
					<tr><td>Language</td><td>{{.submission.Language}}</td></tr>
					<tr><td>Submitted on</td><td>{{.submission.SentAt.Format "15:04:05 Mon Jan 2 2006"}}</td></tr>
					<tr><td>Form URL</td><td>{{.submission.FormURL}}</td></tr>
					<tr><td>People notified</td><td>{{range .recipients}}{{.}}<br>{{end}}</td></tr>
				</tbody>
			</table>
			{{with .jobs}}
				<h4 class="ui header">Mail delivery</h4>
				<table id="jobs-table" class="ui table">
					<tbody>
						{{range .}}
							<tr>
								<td>J{{.ID}}</td>
								<td>{{.Label}}</td>
								<td>{{.SubmitTime.Format "2006-01-02 15:04:05"}}</td>
								<td>{{if .Failed}}Failed: {{.Error}}{{else if .IsFinished}}Sent{{else}}Pending{{end}}</td>
							</tr>
						{{end}}
					</tbody>
				</table>
			{{end}}
			<form action="/admin/submissions/{{.submission.ID}}/delete" method="post">
				<button class="ui red button">Delete</button>
			</form>
		</div>
	</div>
{{end}}
`
