package templates

// Login is the sign in page of the admin area.
const Login = `
{{ define "content" }}
			<div class="user signin">
				<div class="ui middle very relaxed page grid">
					<div class="column">
						<form class="ui form" action="/admin/login" method="post">
							<h3 class="ui top attached header">
								Sign in to manage forms
							</h3>
							<div class="ui attached segment">
								{{with .error}}
									<div class="ui negative message">{{.}}</div>
								{{end}}
								<div class="required inline field ">
									<label for="username">Username</label>
									<input id="username" name="username" value="" autofocus required>
								</div>
								<div class="required inline field ">
									<label for="password">Password</label>
									<input id="password" name="password" type="password" autocomplete="off" value="" required>
								</div>
								<div class="inline field">
									<label></label>
									<button class="ui green button">Sign In</button>
								</div>
							</div>
						</form>
					</div>
				</div>
			</div>
{{ end }}
`
