package web

import "html/template"

type pageData struct {
	Title string
}

var page = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { background: #111; color: #ddd; font-family: sans-serif; text-align: center; }
img { max-width: 95vw; max-height: 80vh; border: 1px solid #333; margin-top: 1em; }
#stats { font-family: monospace; margin: 0.5em; }
button { font-size: 1em; padding: 0.3em 1.2em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<img id="frame" alt="waiting for the rover">
<div id="stats">connecting</div>
<button id="quit">Quit (q)</button>
<script>
const img = document.getElementById("frame");
const stats = document.getElementById("stats");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.binaryType = "blob";
let last = null;
ws.onmessage = (ev) => {
  const url = URL.createObjectURL(ev.data);
  img.src = url;
  if (last) URL.revokeObjectURL(last);
  last = url;
};
ws.onclose = () => { stats.textContent = "link closed"; };
function quit() {
  fetch("/quit", { method: "POST" });
  if (ws.readyState === WebSocket.OPEN) ws.send("quit");
}
document.getElementById("quit").onclick = quit;
document.addEventListener("keydown", (ev) => { if (ev.key === "q") quit(); });
setInterval(async () => {
  try {
    const s = await (await fetch("/stats")).json();
    stats.textContent = "frame " + s.seq + " | shown " + s.shown + " | latency " + s.latency_ms.toFixed(0) + " ms";
  } catch (e) {}
}, 1000);
</script>
</body>
</html>
`))
