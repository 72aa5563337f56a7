package api

const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Image verification</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 40rem; margin: 3rem auto; padding: 0 1rem; }
#preview { max-width: 100%; max-height: 16rem; display: none; margin: 1rem 0; }
.ok { color: #15803d; } .bad { color: #b91c1c; }
dl { display: grid; grid-template-columns: auto 1fr; gap: .25rem 1rem; }
code { word-break: break-all; }
</style>
</head>
<body>
<h1>Image verification</h1>
<p>Upload a JPEG, PNG or WebP image (max 10MB) to compare it with the reference.</p>
<form id="form">
  <input type="file" name="file" id="file" accept="image/jpeg,image/png,image/webp" required>
  <button type="submit" id="submit">Verify</button>
</form>
<img id="preview" alt="">
<div id="result"></div>
<script>
const file = document.getElementById("file");
const preview = document.getElementById("preview");
const result = document.getElementById("result");
const submit = document.getElementById("submit");

file.addEventListener("change", () => {
  const f = file.files[0];
  result.innerHTML = "";
  if (!f) { preview.style.display = "none"; return; }
  preview.src = URL.createObjectURL(f);
  preview.style.display = "block";
});

document.getElementById("form").addEventListener("submit", async (e) => {
  e.preventDefault();
  if (!file.files[0]) return;
  submit.disabled = true;
  result.textContent = "Verifying...";
  const body = new FormData();
  body.append("file", file.files[0]);
  try {
    const res = await fetch("/api/verify", { method: "POST", body });
    const data = await res.json();
    const cls = data.success ? "ok" : "bad";
    const title = data.success ? "Match" : (data.error || "No match");
    let html = '<h2 class="' + cls + '">' + title + '</h2>';
    if (data.similarity) html += "<p>Similarity: " + data.similarity + "%</p>";
    if (data.hash) html += "<p>SHA-256: <code>" + data.hash + "</code></p>";
    if (data.details) {
      const d = data.details;
      html += "<dl><dt>Pixel</dt><dd>" + d.pixelSimilarity + "%</dd>" +
        "<dt>Perceptual</dt><dd>" + d.perceptualSimilarity + "%</dd>" +
        "<dt>Structural</dt><dd>" + d.structuralSimilarity + "%</dd>" +
        "<dt>Time</dt><dd>" + d.processingTimeMs + "ms</dd></dl>";
    }
    result.innerHTML = html;
  } catch (err) {
    result.innerHTML = '<p class="bad">Request failed: ' + err + "</p>";
  } finally {
    submit.disabled = false;
  }
});
</script>
</body>
</html>
`
