package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard serves the instance overview page
// @Summary Instance dashboard
// @Description Read-only web view of all instances, refreshed from GET /instances
// @Tags dashboard
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router / [get]
func (h *InstanceHandler) Dashboard(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, dashboardHTML)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Instance Monitor</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; background: #f5f6f8; color: #24292f; }
  header { background: #1f2328; color: #fff; padding: 16px 24px; display: flex; align-items: baseline; gap: 16px; }
  header h1 { font-size: 18px; margin: 0; }
  header .meta { color: #9da7b1; font-size: 13px; }
  main { padding: 24px; }
  .summary { display: flex; gap: 16px; margin-bottom: 16px; }
  .card { background: #fff; border: 1px solid #d8dee4; border-radius: 6px; padding: 12px 20px; min-width: 110px; }
  .card .num { font-size: 24px; font-weight: 600; }
  .card .label { font-size: 12px; color: #57606a; text-transform: uppercase; }
  table { width: 100%; border-collapse: collapse; background: #fff; border: 1px solid #d8dee4; border-radius: 6px; }
  th, td { text-align: left; padding: 10px 14px; border-bottom: 1px solid #eaeef2; font-size: 14px; }
  th { background: #f6f8fa; font-size: 12px; text-transform: uppercase; color: #57606a; }
  tr:last-child td { border-bottom: none; }
  .badge { display: inline-block; padding: 2px 10px; border-radius: 12px; font-size: 12px; font-weight: 600; }
  .badge.running { background: #dafbe1; color: #116329; }
  .badge.crashed { background: #ffebe9; color: #cf222e; }
  .badge.stopped { background: #fff8c5; color: #7d4e00; }
  .mono { font-family: ui-monospace, "SF Mono", Menlo, monospace; font-size: 13px; }
  .muted { color: #8c959f; }
  .error-detail { color: #cf222e; max-width: 320px; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
  #empty { padding: 40px; text-align: center; color: #8c959f; }
</style>
</head>
<body>
<header>
  <h1>Instance Monitor</h1>
  <span class="meta" id="updated">loading…</span>
</header>
<main>
  <div class="summary">
    <div class="card"><div class="num" id="count-running">–</div><div class="label">Running</div></div>
    <div class="card"><div class="num" id="count-crashed">–</div><div class="label">Crashed</div></div>
    <div class="card"><div class="num" id="count-stopped">–</div><div class="label">Stopped</div></div>
    <div class="card"><div class="num" id="count-total">–</div><div class="label">Total</div></div>
  </div>
  <table>
    <thead>
      <tr>
        <th>Instance</th><th>Logical Key</th><th>Host</th><th>State</th>
        <th>Last Heartbeat</th><th>Warnings</th><th>Error</th><th>Created</th>
      </tr>
    </thead>
    <tbody id="rows"></tbody>
  </table>
  <div id="empty" hidden>No instances registered yet.</div>
</main>
<script>
function relative(ts) {
  if (!ts) return "never";
  var diff = Math.floor((Date.now() - new Date(ts).getTime()) / 1000);
  if (diff < 0) diff = 0;
  if (diff < 60) return diff + "s ago";
  if (diff < 3600) return Math.floor(diff / 60) + "m ago";
  if (diff < 86400) return Math.floor(diff / 3600) + "h ago";
  return Math.floor(diff / 86400) + "d ago";
}

function esc(s) {
  var d = document.createElement("div");
  d.textContent = s == null ? "" : String(s);
  return d.innerHTML;
}

function render(instances) {
  var counts = { running: 0, crashed: 0, stopped: 0 };
  var rows = instances.map(function (inst) {
    counts[inst.state] = (counts[inst.state] || 0) + 1;
    return "<tr>" +
      "<td class=\"mono\">" + esc(inst.instance_id) + "</td>" +
      "<td>" + esc(inst.logical_key) + "</td>" +
      "<td>" + esc(inst.host_label) + "</td>" +
      "<td><span class=\"badge " + esc(inst.state) + "\">" + esc(inst.state) + "</span></td>" +
      "<td>" + (inst.last_heartbeat ? relative(inst.last_heartbeat) : "<span class=\"muted\">never</span>") + "</td>" +
      "<td>" + esc(inst.notification_count) + "</td>" +
      "<td class=\"error-detail\" title=\"" + esc(inst.error_detail) + "\">" +
        (inst.error_detail ? esc(inst.error_detail) : "<span class=\"muted\">–</span>") + "</td>" +
      "<td>" + relative(inst.created_at) + "</td>" +
      "</tr>";
  });
  document.getElementById("rows").innerHTML = rows.join("");
  document.getElementById("empty").hidden = instances.length > 0;
  document.getElementById("count-running").textContent = counts.running || 0;
  document.getElementById("count-crashed").textContent = counts.crashed || 0;
  document.getElementById("count-stopped").textContent = counts.stopped || 0;
  document.getElementById("count-total").textContent = instances.length;
  document.getElementById("updated").textContent = "updated " + new Date().toLocaleTimeString();
}

function refresh() {
  fetch("/instances")
    .then(function (resp) { return resp.json(); })
    .then(function (data) {
      if (data.status === "success") render(data.instances || []);
    })
    .catch(function () {
      document.getElementById("updated").textContent = "update failed, retrying…";
    });
}

refresh();
setInterval(refresh, 30000);
</script>
</body>
</html>
`
