package httpx

const dashboardPageHTML = `<!doctype html>
<html lang="fr">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>NOOSE</title>
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
  <link href="https://fonts.googleapis.com/css2?family=Space+Grotesk:wght@400;600;700&family=JetBrains+Mono:wght@400;600&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg: #140c0c;
      --bg2: #2a1414;
      --card: rgba(36, 16, 16, 0.8);
      --line: #5a2b2b;
      --text: #fbeeee;
      --muted: #c9a3a3;
      --accent: #54f2b2;
      --gold: #ffd25a;
      --silver: #d7dde4;
      --bronze: #d9925b;
      --warn: #ffca63;
      --danger: #ff6b7d;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      color: var(--text);
      background:
        radial-gradient(800px 500px at 10% -20%, rgba(255, 107, 125, 0.25), transparent 70%),
        radial-gradient(900px 540px at 100% 0%, rgba(255, 202, 99, 0.15), transparent 65%),
        linear-gradient(130deg, var(--bg), var(--bg2));
      font-family: "Space Grotesk", "Segoe UI", sans-serif;
      min-height: 100vh;
    }
    .shell { max-width: 1120px; margin: 0 auto; padding: 28px 18px 40px; }
    .headline { display: flex; justify-content: space-between; align-items: end; gap: 14px; margin-bottom: 18px; }
    h1 { margin: 0; letter-spacing: 0.08em; font-weight: 700; font-size: clamp(1.6rem, 2.4vw, 2.3rem); }
    h2 { margin: 0 0 10px; font-size: 1.05rem; letter-spacing: 0.05em; text-transform: uppercase; color: var(--muted); }
    .tag { color: var(--muted); font-family: "JetBrains Mono", monospace; font-size: 12px; }
    .cards { display: grid; grid-template-columns: 2fr 1fr 1fr; gap: 10px; margin-bottom: 14px; }
    .card { background: var(--card); border: 1px solid var(--line); border-radius: 12px; padding: 12px; backdrop-filter: blur(8px); }
    .k { font-family: "JetBrains Mono", monospace; font-size: 11px; color: var(--muted); margin-bottom: 8px; text-transform: uppercase; letter-spacing: 0.06em; }
    .v { font-size: 1.3rem; font-weight: 700; }
    .profile { display: flex; gap: 12px; align-items: center; }
    .profile img { width: 64px; height: 64px; border-radius: 50%; object-fit: cover; border: 2px solid var(--line); }
    .quote { font-style: italic; }
    nav { display: flex; gap: 8px; margin-bottom: 14px; }
    nav button { width: auto; }
    nav button.active { border-color: var(--gold); }
    .view { display: none; }
    .view.active { display: block; }
    form { display: grid; grid-template-columns: repeat(5, minmax(0, 1fr)); gap: 10px; margin-bottom: 14px; }
    form.narrow { grid-template-columns: 3fr 1fr; }
    input, select, button {
      width: 100%;
      border-radius: 10px;
      border: 1px solid var(--line);
      background: rgba(30, 12, 12, 0.86);
      color: var(--text);
      padding: 10px 11px;
      font: inherit;
    }
    button {
      border-color: #8a3f3f;
      background: linear-gradient(90deg, rgba(255, 107, 125, 0.22), rgba(255, 202, 99, 0.2));
      cursor: pointer;
      font-weight: 600;
    }
    .table-wrap { background: var(--card); border: 1px solid var(--line); border-radius: 12px; overflow: auto; margin-bottom: 14px; }
    table { width: 100%; border-collapse: collapse; min-width: 720px; }
    th, td { padding: 10px 11px; text-align: left; border-bottom: 1px solid rgba(90, 43, 43, 0.55); font-size: 14px; }
    th { font-size: 11px; color: var(--muted); text-transform: uppercase; letter-spacing: 0.07em; }
    tr.clickable { cursor: pointer; }
    .mono { font-family: "JetBrains Mono", monospace; }
    .boards { display: grid; grid-template-columns: repeat(3, minmax(0, 1fr)); gap: 10px; }
    .badge { display: inline-block; padding: 2px 8px; border-radius: 999px; font-size: 11px; font-weight: 700; color: #1a0c0c; }
    .tier-gold { background: var(--gold); }
    .tier-silver { background: var(--silver); }
    .tier-bronze { background: var(--bronze); }
    .tier-default { background: transparent; color: var(--muted); border: 1px solid var(--line); }
    .band-free { color: var(--accent); }
    .band-low { color: var(--text); }
    .band-medium { color: var(--warn); }
    .band-severe { color: var(--danger); font-weight: 700; }
    #toasts { position: fixed; right: 18px; bottom: 18px; display: flex; flex-direction: column; gap: 8px; }
    .toast { background: var(--card); border: 1px solid var(--line); border-radius: 10px; padding: 10px 14px; }
    .toast.error { border-color: var(--danger); }
    #popup { position: fixed; inset: 0; background: rgba(0, 0, 0, 0.7); display: none; align-items: center; justify-content: center; }
    #popup.open { display: flex; }
    #popup .card { max-width: 420px; text-align: center; }
    #popup img { max-width: 100%; border-radius: 8px; }
    @media (max-width: 920px) {
      .cards, .boards { grid-template-columns: 1fr; }
      form { grid-template-columns: repeat(2, minmax(0, 1fr)); }
    }
  </style>
</head>
<body>
  <main class="shell">
    <section class="headline">
      <div>
        <h1>NOOSE</h1>
        <div class="tag">Registre officiel des accidents du service.</div>
      </div>
      <button id="refreshBtn" style="width:auto">Rafraîchir</button>
    </section>

    <section class="cards">
      <article class="card profile">
        <img id="photo" alt="" hidden />
        <div>
          <div class="k">Collègue surveillé</div>
          <div id="colleague" class="v">-</div>
          <div id="tagline" class="tag"></div>
        </div>
      </article>
      <article class="card"><div class="k">Accidents</div><div id="profileAccidents" class="v">-</div></article>
      <article class="card"><div class="k">Coût total</div><div id="profileCost" class="v">-</div></article>
    </section>
    <section class="card quote" id="quote" hidden></section>

    <nav>
      <button data-view="journal" class="active">Journal</button>
      <button data-view="agents">Agents</button>
      <button data-view="palmares">Palmarès</button>
      <button id="exportBtn">Exporter .xlsx</button>
    </nav>

    <section id="view-journal" class="view active">
      <form id="accidentForm">
        <input name="date" type="date" />
        <input name="description" placeholder="description" required />
        <input name="cost" type="number" step="0.01" min="0" placeholder="coût (€)" />
        <input name="added_by" placeholder="signalé par" required />
        <select name="agent_id"><option value="">non assigné</option></select>
        <button type="submit">Déclarer l'accident</button>
      </form>
      <div class="table-wrap">
        <table>
          <thead><tr><th>Date</th><th>Description</th><th>Coût</th><th>Agent</th><th>Signalé par</th></tr></thead>
          <tbody id="journalRows"></tbody>
        </table>
      </div>
    </section>

    <section id="view-agents" class="view">
      <form id="agentForm" class="narrow">
        <input name="name" placeholder="nom de l'agent" required />
        <button type="submit">Recruter</button>
      </form>
      <div class="table-wrap">
        <table>
          <thead><tr><th>#</th><th>Nom</th><th>Accidents</th><th>Coût total</th></tr></thead>
          <tbody id="agentRows"></tbody>
        </table>
      </div>
      <div id="agentDetail" class="card" hidden></div>
    </section>

    <section id="view-palmares" class="view">
      <section class="cards">
        <article class="card"><div class="k">Agents</div><div id="sumAgents" class="v">-</div></article>
        <article class="card"><div class="k">Accidents</div><div id="sumAccidents" class="v">-</div></article>
        <article class="card"><div class="k">Moyenne / agent</div><div id="sumAverage" class="v">-</div></article>
      </section>
      <div class="boards">
        <div class="card"><h2>Accidents</h2><div id="boardAccidents"></div></div>
        <div class="card"><h2>Coût</h2><div id="boardCost"></div></div>
        <div class="card"><h2>Combiné</h2><div id="boardCombined"></div></div>
      </div>
    </section>
  </main>
  <div id="popup"><div class="card"><h2 id="popupTitle"></h2><a id="popupLink"><img id="popupImage" alt="" /></a><button id="popupClose">Fermer</button></div></div>
  <div id="toasts"></div>
  <script>
    const agentNames = {};
    let journal = [];

    async function fetchJSON(url, options) {
      const res = await fetch(url, options);
      const body = await res.json().catch(() => ({}));
      if (!res.ok) throw new Error(body.error || res.statusText);
      return body;
    }
    function euro(v) { return Number(v || 0).toLocaleString("fr-FR", { style: "currency", currency: "EUR" }); }
    function band(v) {
      const n = Number(v || 0);
      if (n <= 0) return "free";
      if (n < 100) return "low";
      if (n < 1000) return "medium";
      return "severe";
    }
    function esc(s) {
      const d = document.createElement("div");
      d.textContent = s == null ? "" : String(s);
      return d.innerHTML;
    }
    function toast(message, isError) {
      const el = document.createElement("div");
      el.className = "toast" + (isError ? " error" : "");
      el.textContent = message;
      document.getElementById("toasts").appendChild(el);
      setTimeout(() => el.remove(), 4000);
    }

    async function loadDashboard() {
      const d = await fetchJSON("/api/dashboard");
      if (d.profile) {
        const p = d.profile.profile;
        document.getElementById("colleague").textContent = p.name + " " + p.surname + (p.nickname ? " « " + p.nickname + " »" : "");
        document.getElementById("tagline").textContent = d.profile.tagline;
        document.getElementById("profileAccidents").textContent = p.total_accidents;
        document.getElementById("profileCost").textContent = euro(p.total_cost);
        const photo = document.getElementById("photo");
        if (p.photo_url) { photo.src = p.photo_url; photo.hidden = false; }
      }
      const quote = document.getElementById("quote");
      if (d.quote) {
        quote.textContent = "« " + d.quote.content + " »" + (d.quote.author ? " " + d.quote.author : "");
        quote.hidden = false;
      }
      if (d.popup && !sessionStorage.getItem("popup-" + d.popup.id)) {
        document.getElementById("popupTitle").textContent = d.popup.title;
        document.getElementById("popupImage").src = d.popup.image_url;
        if (d.popup.redirect_url) document.getElementById("popupLink").href = d.popup.redirect_url;
        document.getElementById("popup").classList.add("open");
        sessionStorage.setItem("popup-" + d.popup.id, "1");
      }
      if (d.degraded && d.degraded.length) console.debug("dashboard degraded:", d.degraded.join(", "));
    }

    async function loadAgents() {
      const agents = await fetchJSON("/api/agents");
      const rows = document.getElementById("agentRows");
      const select = document.querySelector("#accidentForm select[name=agent_id]");
      rows.innerHTML = "";
      select.innerHTML = '<option value="">non assigné</option>';
      agents.forEach((a) => {
        agentNames[a.id] = a.name;
        const tr = document.createElement("tr");
        tr.className = "clickable";
        tr.innerHTML =
          '<td class="mono">' + a.agent_number + '</td>' +
          '<td>' + esc(a.name) + '</td>' +
          '<td class="mono">' + a.total_accidents + '</td>' +
          '<td class="mono band-' + band(a.total_cost) + '">' + euro(a.total_cost) + '</td>';
        tr.addEventListener("click", () => showAgent(a.id).catch((e) => console.debug("agent detail:", e.message)));
        rows.appendChild(tr);
        const opt = document.createElement("option");
        opt.value = a.id;
        opt.textContent = "#" + a.agent_number + " " + a.name;
        select.appendChild(opt);
      });
      renderJournal();
    }

    async function showAgent(id) {
      const d = await fetchJSON("/api/agents/" + encodeURIComponent(id));
      const el = document.getElementById("agentDetail");
      el.innerHTML =
        '<h2>Agent #' + d.agent.agent_number + ' ' + esc(d.agent.name) + '</h2>' +
        '<div class="tag">Score combiné : ' + Number(d.combined_score || 0).toFixed(2) + '</div>' +
        '<ul>' + d.accidents.map((x) => '<li>' + esc(x.date) + ' : ' + esc(x.description) +
          ' <span class="band-' + band(x.cost) + '">' + euro(x.cost) + '</span></li>').join("") + '</ul>';
      el.hidden = false;
    }

    async function loadJournal() {
      journal = await fetchJSON("/api/accidents?limit=200");
      renderJournal();
    }

    function renderJournal() {
      const rows = document.getElementById("journalRows");
      rows.innerHTML = "";
      journal.forEach((x) => {
        const tr = document.createElement("tr");
        tr.innerHTML =
          '<td class="mono">' + esc(x.date) + '</td>' +
          '<td>' + esc(x.description) + '</td>' +
          '<td class="mono band-' + band(x.cost) + '">' + euro(x.cost) + '</td>' +
          '<td>' + (x.agent_id ? esc(agentNames[x.agent_id] || "?") : "-") + '</td>' +
          '<td>' + esc(x.added_by) + '</td>';
        rows.appendChild(tr);
      });
    }

    function renderBoard(id, standings, format) {
      const el = document.getElementById(id);
      if (!standings.length) { el.innerHTML = '<div class="tag">Aucun agent.</div>'; return; }
      el.innerHTML = standings.map((s) =>
        '<div><span class="badge tier-' + s.tier + '">' + s.rank + '</span> ' + esc(s.agent.name) +
        ' <span class="mono">' + format(s.score) + '</span></div>').join("");
    }

    async function loadPalmares() {
      const b = await fetchJSON("/api/leaderboard");
      document.getElementById("sumAgents").textContent = b.summary.agent_count;
      document.getElementById("sumAccidents").textContent = b.summary.total_accidents;
      document.getElementById("sumAverage").textContent = Number(b.summary.average_accidents_per_agent || 0).toFixed(2);
      renderBoard("boardAccidents", b.by_accidents || [], (v) => v);
      renderBoard("boardCost", b.by_cost || [], euro);
      renderBoard("boardCombined", b.by_combined || [], (v) => Number(v || 0).toFixed(2));
    }

    // Each section loads on its own. A failed read leaves that section as it was.
    async function refresh() {
      const sections = ["dashboard", "agents", "journal", "palmares"];
      const results = await Promise.allSettled([loadDashboard(), loadAgents(), loadJournal(), loadPalmares()]);
      results.forEach((r, i) => {
        if (r.status === "rejected") console.debug("refresh " + sections[i] + ":", r.reason && r.reason.message);
      });
    }

    function formJSON(form) {
      const data = Object.fromEntries(new FormData(form).entries());
      if ("cost" in data) data.cost = data.cost === "" ? 0 : data.cost;
      return JSON.stringify(data);
    }

    document.getElementById("accidentForm").addEventListener("submit", async (e) => {
      e.preventDefault();
      try {
        await fetchJSON("/api/accidents", { method: "POST", headers: { "Content-Type": "application/json" }, body: formJSON(e.target) });
        e.target.reset();
        toast("Accident enregistré.");
      } catch (err) { toast(err.message, true); return; }
      await refresh();
    });
    document.getElementById("agentForm").addEventListener("submit", async (e) => {
      e.preventDefault();
      try {
        const a = await fetchJSON("/api/agents", { method: "POST", headers: { "Content-Type": "application/json" }, body: formJSON(e.target) });
        e.target.reset();
        toast("Agent #" + a.agent_number + " recruté.");
      } catch (err) { toast(err.message, true); return; }
      await refresh();
    });
    document.querySelectorAll("nav button[data-view]").forEach((btn) => {
      btn.addEventListener("click", () => {
        document.querySelectorAll("nav button[data-view]").forEach((b) => b.classList.toggle("active", b === btn));
        document.querySelectorAll(".view").forEach((v) => v.classList.toggle("active", v.id === "view-" + btn.dataset.view));
      });
    });
    document.getElementById("exportBtn").addEventListener("click", () => { window.location = "/api/export.xlsx"; });
    document.getElementById("popupClose").addEventListener("click", () => document.getElementById("popup").classList.remove("open"));
    document.getElementById("refreshBtn").addEventListener("click", refresh);
    refresh();
  </script>
</body>
</html>`
