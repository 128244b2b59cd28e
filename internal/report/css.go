package report

// reportCSS is the print-optimised stylesheet embedded into every report.
const reportCSS = `
@import url('https://fonts.googleapis.com/css2?family=Inter:wght@300;400;500;600;700;800&display=swap');

*, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }

body {
  font-family: 'Inter', system-ui, -apple-system, sans-serif;
  color: #1e293b;
  background: #ffffff;
  line-height: 1.6;
  font-size: 14px;
  -webkit-print-color-adjust: exact;
  print-color-adjust: exact;
}

@page { size: A4; margin: 0.6in 0.5in; }

@media print {
  body { font-size: 11pt; }
  .no-print { display: none !important; }
  .page-break { page-break-before: always; }
  .avoid-break { page-break-inside: avoid; break-inside: avoid; }
  section { page-break-inside: avoid; }
}

.container { max-width: 820px; margin: 0 auto; padding: 0 20px; }

.report-cover {
  background: linear-gradient(135deg, #3b82f6 0%, #8b5cf6 100%);
  color: white;
  padding: 40px 0;
  margin-bottom: 32px;
}
.report-cover .container { display: flex; justify-content: space-between; align-items: center; }
.report-cover h1 { font-size: 28px; font-weight: 800; letter-spacing: -0.5px; }
.report-cover .subtitle { font-size: 16px; opacity: 0.9; margin-top: 4px; font-weight: 400; }
.report-cover .meta { text-align: right; font-size: 13px; opacity: 0.85; }
.report-cover .meta .mode-badge {
  display: inline-block; padding: 4px 14px; border-radius: 20px;
  background: rgba(255,255,255,0.2); font-weight: 600; margin-bottom: 6px;
}

.section-header {
  display: flex; align-items: center; gap: 10px;
  margin: 32px 0 16px; padding-bottom: 10px;
  border-bottom: 2px solid #e2e8f0;
}
.section-header h2 { font-size: 18px; font-weight: 700; color: #1e293b; }
.section-header .count {
  display: inline-flex; align-items: center; justify-content: center;
  min-width: 24px; height: 24px; border-radius: 12px; font-size: 12px; font-weight: 700;
  background: #3b82f615; color: #3b82f6; padding: 0 8px;
}

.dashboard { display: grid; grid-template-columns: repeat(4, 1fr); gap: 16px; margin-bottom: 24px; }
.stat-card {
  background: #f8fafc; border: 1px solid #e2e8f0; border-radius: 12px;
  padding: 16px; text-align: center;
}
.stat-card .value { font-size: 28px; font-weight: 800; color: #3b82f6; }
.stat-card .label { font-size: 12px; color: #6b7280; font-weight: 500; margin-top: 4px; }
.stat-card.risk .value { color: #d97706; }
.stat-card.danger .value { color: #dc2626; }
.stat-card.success .value { color: #059669; }

.gauge-row { display: flex; justify-content: center; gap: 12px; flex-wrap: wrap; margin: 16px 0 24px; background: #f8fafc; border-radius: 12px; padding: 20px; border: 1px solid #e2e8f0; }

.card { background: #f8fafc; border: 1px solid #e2e8f0; border-radius: 12px; padding: 16px; margin-bottom: 12px; }
.card h4 { font-size: 14px; font-weight: 600; margin-bottom: 8px; }

.effect-card {
  display: flex; gap: 12px; padding: 14px; border: 1px solid #e2e8f0;
  border-radius: 10px; margin-bottom: 8px; background: white;
  page-break-inside: avoid;
}
.effect-card .order-indicator { width: 4px; border-radius: 4px; flex-shrink: 0; }
.effect-body { flex: 1; min-width: 0; }
.effect-title { font-weight: 600; font-size: 13px; margin-bottom: 4px; }
.effect-meta { display: flex; gap: 8px; flex-wrap: wrap; align-items: center; margin-bottom: 6px; }
.effect-justification { font-size: 12px; color: #475569; line-height: 1.5; }
.effect-stats { display: flex; gap: 16px; font-size: 11px; color: #6b7280; margin-top: 6px; }
.effect-stats strong { font-weight: 700; }
.effect-stats .positive { color: #059669; }
.effect-stats .negative { color: #dc2626; }

.leap-card {
  border: 1px solid #dc262640; background: #dc262608;
  border-radius: 10px; padding: 16px; margin-bottom: 10px; border-left: 4px solid #dc2626;
  page-break-inside: avoid;
}
.leap-card h4 { color: #dc2626; font-size: 14px; }
.leap-card .mechanism { font-size: 12px; color: #475569; font-style: italic; margin-top: 6px; }

.list-item { display: flex; gap: 8px; align-items: flex-start; padding: 6px 0; font-size: 13px; }
.list-dot { width: 8px; height: 8px; border-radius: 50%; flex-shrink: 0; margin-top: 6px; }
.list-number {
  width: 24px; height: 24px; border-radius: 50%; display: flex; align-items: center; justify-content: center;
  font-size: 11px; font-weight: 700; flex-shrink: 0; color: white;
}

.data-table { width: 100%; border-collapse: collapse; font-size: 12px; margin: 12px 0; }
.data-table th { background: #f8fafc; text-align: left; padding: 10px 12px; font-weight: 600; color: #6b7280; border-bottom: 2px solid #e2e8f0; }
.data-table td { padding: 10px 12px; border-bottom: 1px solid #e2e8f0; vertical-align: top; }
.rpn-high { color: #dc2626; font-weight: 700; }
.rpn-med { color: #d97706; font-weight: 600; }
.rpn-low { color: #059669; }

.domain-strip { display: flex; border-radius: 6px; overflow: hidden; height: 20px; margin: 8px 0; }
.domain-strip div { display: flex; align-items: center; justify-content: center; font-size: 9px; font-weight: 700; color: white; }

.connection-item {
  display: flex; align-items: center; gap: 8px; padding: 8px 12px;
  border: 1px solid #e2e8f0; border-radius: 8px; margin-bottom: 6px; font-size: 12px;
  background: white; page-break-inside: avoid;
}
.connection-arrow { color: #3b82f6; font-weight: 700; font-size: 16px; }
.connection-mechanism { color: #6b7280; font-size: 11px; font-style: italic; }

.report-footer {
  margin-top: 40px; padding-top: 16px; border-top: 1px solid #e2e8f0;
  text-align: center; font-size: 11px; color: #6b7280;
}

.print-bar {
  position: fixed; top: 0; left: 0; right: 0; z-index: 100;
  background: white; border-bottom: 1px solid #e2e8f0;
  padding: 10px 20px; display: flex; justify-content: flex-end; gap: 10px;
  box-shadow: 0 2px 8px rgba(0,0,0,0.08);
}
.btn {
  padding: 8px 20px; border-radius: 8px; font-size: 13px; font-weight: 600;
  cursor: pointer; border: none;
}
.btn-primary { background: #3b82f6; color: white; }
.btn-primary:hover { background: #1d4ed8; }
.btn-outline { background: white; color: #1e293b; border: 1px solid #e2e8f0; }
.spacer-top { height: 56px; }
`
