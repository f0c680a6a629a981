package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/leveled-edge/internal/mqtt"
	"github.com/sweeney/leveled-edge/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ms": func(v int64) string {
		if v == 0 {
			return "0 (immediate)"
		}
		return fmt.Sprintf("%dms", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Name}} - leveled-edge</title>
<style>
:root { --ok: #2a7a2a; --bad: #b22222; --warn: #c77700; --dim: #777; }
body { font: 14px/1.4 ui-monospace, monospace; max-width: 40em; margin: 1.5em auto; padding: 0 1em; }
header { display: flex; align-items: baseline; gap: 0.5em; }
header h1 { font-size: 1.3em; margin: 0; }
section h2 { font-size: 1em; text-transform: uppercase; color: var(--dim); margin: 1.5em 0 0.3em; }
dl { display: grid; grid-template-columns: 12em 1fr; margin: 0; }
dt, dd { margin: 0; padding: 3px 0; border-bottom: 1px dotted #ccc; }
.lvl-high { color: var(--ok); font-weight: bold; }
.lvl-low { color: var(--dim); font-weight: bold; }
.lvl-unknown, .dot-pending { color: var(--warn); }
.mqtt-up, .dot-live { color: var(--ok); }
.mqtt-down, .dot-down { color: var(--bad); }
</style>
</head>
<body>
<header><h1>{{.Name}}</h1>{{if .Config.WSBroker}}<span id="live" class="dot-pending" title="connecting">&#9679;</span>{{end}}</header>

<section>
<h2>Line</h2>
<dl>
{{- if .Ready}}
<dt>Level</dt><dd id="level" class="{{if .Level}}lvl-high{{else}}lvl-low{{end}}">{{.Level}}</dd>
<dt>Armed</dt><dd id="trigger">{{.Trigger}}</dd>
{{- else}}
<dt>Level</dt><dd id="level" class="lvl-unknown">UNKNOWN</dd>
{{- end}}
<dt>Last change</dt><dd id="last-change">{{if .LastChange.IsZero}}never{{else}}{{.LastChange.UTC.Format "2006-01-02T15:04:05.000Z"}}{{end}}</dd>
</dl>
</section>

<section>
<h2>Counters</h2>
<dl>
<dt>Interrupts</dt><dd>{{.Counts.Interrupts}}</dd>
<dt>Transitions</dt><dd>{{.Counts.Transitions}}</dd>
{{- if eq .Config.Mode "rotary"}}
<dt>CW</dt><dd>{{.Counts.CW}}</dd>
<dt>CCW</dt><dd>{{.Counts.CCW}}</dd>
{{- end}}
<dt>Dropped</dt><dd>{{.Counts.Dropped}}</dd>
</dl>
</section>

<section>
<h2>MQTT</h2>
<dl>
<dt>Connection</dt><dd class="{{if .MQTTConnected}}mqtt-up{{else}}mqtt-down{{end}}">{{if .MQTTConnected}}up{{else}}down{{end}}</dd>
<dt>Broker</dt><dd>{{.Config.Broker}}</dd>
</dl>
</section>

<section>
<h2>Daemon</h2>
<dl>
<dt>Uptime</dt><dd>{{uptime .Uptime}}</dd>
<dt>Started</dt><dd>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</dd>
<dt>Mode</dt><dd>{{.Config.Mode}}</dd>
<dt>Driver</dt><dd>{{.Config.Driver}}{{with .Config.Chip}} on {{.}}{{end}}</dd>
<dt>Line</dt><dd>{{.Config.Line}} (bias {{.Config.Bias}})</dd>
<dt>Debounce</dt><dd>{{ms .Config.DebounceMs}}</dd>
<dt>Retrigger</dt><dd>{{.Config.RetriggerMs}}ms</dd>
<dt>Heartbeat</dt><dd>{{if eq .Config.HeartbeatMs 0}}off{{else}}{{.Config.HeartbeatMs}}ms{{end}}</dd>
<dt>HTTP</dt><dd>{{.Config.HTTPAddr}}</dd>
</dl>
</section>

<p><a href="/index.json">index.json</a></p>
{{- if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt/dist/mqtt.min.js"></script>
<script>
(function() {
  var live = document.getElementById("live");
  var level = document.getElementById("level");
  var changed = document.getElementById("last-change");
  function mark(cls, title) { live.className = cls; live.title = title; }

  var client = mqtt.connect("{{.Config.WSBroker}}", { reconnectPeriod: 5000 });
  client.on("connect", function() { mark("dot-live", "live"); client.subscribe("{{.Topic}}"); });
  client.on("reconnect", function() { mark("dot-pending", "reconnecting"); });
  client.on("offline", function() { mark("dot-down", "offline"); });
  client.on("error", function() { mark("dot-down", "error"); });
  client.on("message", function(_, payload) {
    var ev;
    try { ev = JSON.parse(payload.toString()).line; } catch (e) { return; }
    if (!ev || ev.event !== "LEVEL") { return; }
    level.textContent = ev.level;
    level.className = ev.level === "HIGH" ? "lvl-high" : "lvl-low";
    changed.textContent = ev.timestamp;
  });
})();
</script>
{{- end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Topic  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Topic:    mqtt.EventTopic(snap.Name),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render: %v", err)
	}
}
