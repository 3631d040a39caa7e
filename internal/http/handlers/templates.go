package handlers

import (
	"html/template"
	"strconv"
)

var pageFuncs = template.FuncMap{
	"money": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"kwh":   func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
}

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>CSMS Admin</title></head>
<body>
<main class="login">
  <h1>CSMS Admin</h1>
  <p>Charging Station Management System</p>
  <form method="post" action="/login">
    <input type="hidden" name="csrf" value="{{.CSRF}}">
    {{if .Error}}<div class="error" role="alert">{{.Error}}</div>{{end}}
    <label>Email <input type="email" name="email" value="{{.Email}}" placeholder="admin@example.com" required></label>
    <label>Password <input type="password" name="password" required></label>
    <button type="submit">Sign in</button>
  </form>
</main>
</body>
</html>
`))

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>CSMS Admin · Dashboard</title></head>
<body>
<header>
  <span>{{.User.DisplayName}} ({{.User.Role}})</span>
  <form method="post" action="/logout"><input type="hidden" name="csrf" value="{{.CSRF}}"><button type="submit">Log out</button></form>
</header>

<section id="stats">
  <h2>Summary</h2>
  {{if .StatsError}}<p class="error">{{.StatsError}}</p>
  {{else if .Stats}}
  <dl>
    <dt>Transactions</dt><dd>{{.Stats.TotalTransactions}} ({{.Stats.CompletedTransactions}} completed)</dd>
    <dt>Energy</dt><dd>{{kwh .Stats.TotalEnergy}} kWh</dd>
    <dt>Revenue</dt><dd>{{money .Stats.TotalRevenue}}</dd>
    <dt>Average cost</dt><dd>{{money .Stats.AverageTransactionCost}}</dd>
  </dl>
  {{end}}
</section>

<section id="stations">
  <h2>Stations</h2>
  {{if .StationsError}}<p class="error">{{.StationsError}}</p>
  {{else}}
  <table>
    <tr><th>Name</th><th>Charge point</th><th>Location</th><th>Status</th><th>Connectors</th></tr>
    {{range .Stations}}<tr><td>{{.Name}}</td><td>{{.ChargePointID}}</td><td>{{.Location}}</td><td>{{.Status}}</td><td>{{len .Connectors}}</td></tr>
    {{else}}<tr><td colspan="5">No stations</td></tr>{{end}}
  </table>
  {{end}}
</section>

<section id="transactions">
  <h2>Recent transactions</h2>
  {{if .TransactionsError}}<p class="error">{{.TransactionsError}}</p>
  {{else}}
  <table>
    <tr><th>ID</th><th>Station</th><th>Connector</th><th>Status</th><th>Started</th><th>Amount</th></tr>
    {{range .Transactions}}<tr><td>{{.ID}}</td><td>{{.StationID}}</td><td>{{.ConnectorID}}</td><td>{{.Status}}</td><td>{{.StartTime.Format "2006-01-02 15:04"}}</td><td>{{money .Amount}}</td></tr>
    {{else}}<tr><td colspan="6">No transactions</td></tr>{{end}}
  </table>
  {{end}}
</section>
</body>
</html>
`))
