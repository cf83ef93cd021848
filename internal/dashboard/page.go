package dashboard

// indexPage is the whole frontend: two canvases polling the series API
// once per second. Fetch errors show up in a banner with a retry button;
// polling keeps going either way.
const indexPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>haus telemetry</title>
<style>
  body { font-family: sans-serif; margin: 2rem; background: #fafafa; }
  h1 { font-size: 1.2rem; }
  .chart { margin-bottom: 2rem; }
  canvas { background: #fff; border: 1px solid #ccc; }
  #error { display: none; background: #fdd; border: 1px solid #c00;
           padding: 0.5rem 1rem; margin-bottom: 1rem; }
</style>
</head>
<body>
<h1>haus telemetry</h1>
<div id="error"><span id="error-text"></span> <button onclick="retry()">Retry</button></div>
<div class="chart"><h2>Temperature (&deg;C)</h2><canvas id="temperature" width="900" height="220"></canvas></div>
<div class="chart"><h2>Humidity (%RH)</h2><canvas id="humidity" width="900" height="220"></canvas></div>
<script>
const series = {
  temperature: { points: [], cursor: 0 },
  humidity: { points: [], cursor: 0 },
};

async function pollSeries(name) {
  const s = series[name];
  const url = "/api/series/" + name + (s.cursor ? "?after=" + s.cursor : "");
  const resp = await fetch(url);
  if (!resp.ok) throw new Error("HTTP " + resp.status);
  const body = await resp.json();
  if (body.error) throw new Error(body.error);
  s.points.push(...body.points);
  if (body.cursor) s.cursor = body.cursor;
  draw(name);
}

function draw(name) {
  const canvas = document.getElementById(name);
  const ctx = canvas.getContext("2d");
  ctx.clearRect(0, 0, canvas.width, canvas.height);

  const pts = series[name].points;
  if (pts.length < 2) return;

  const ts = pts.map(p => p.t), vs = pts.map(p => p.v);
  const tMin = Math.min(...ts), tMax = Math.max(...ts);
  const vMin = Math.min(...vs), vMax = Math.max(...vs);
  const vPad = (vMax - vMin) || 1;

  ctx.beginPath();
  ctx.strokeStyle = name === "temperature" ? "#c33" : "#36c";
  pts.forEach((p, i) => {
    const x = 10 + (canvas.width - 20) * (p.t - tMin) / ((tMax - tMin) || 1);
    const y = canvas.height - 10 - (canvas.height - 20) * (p.v - vMin + vPad * 0.1) / (vPad * 1.2);
    i === 0 ? ctx.moveTo(x, y) : ctx.lineTo(x, y);
  });
  ctx.stroke();
}

async function tick() {
  try {
    await Promise.all(Object.keys(series).map(pollSeries));
    document.getElementById("error").style.display = "none";
  } catch (err) {
    document.getElementById("error-text").textContent = "Fetch failed: " + err.message;
    document.getElementById("error").style.display = "block";
  }
}

function retry() { tick(); }

setInterval(tick, 1000);
tick();
</script>
</body>
</html>
`
