package browser

// nodeMarkerAttr tags nodes returned by findNodesJS so they can be addressed
// again by CSS.
const nodeMarkerAttr = "data-survey-agent-node"

// findNodesJS resolves a Query in the page. It mirrors the playwright
// semantics closely enough for the queries the agent issues: substring text
// matches are case-insensitive, exact ones compare whitespace-collapsed text.
const findNodesJS = `(q, token) => {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const matches = (text, want, exact) => {
		const t = norm(text);
		const w = norm(want);
		return exact ? t === w : t.toLowerCase().includes(w.toLowerCase());
	};
	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' &&
			style.display !== 'none' &&
			style.opacity !== '0';
	};
	const implicitRole = (el) => {
		const tag = el.tagName.toLowerCase();
		const type = (el.getAttribute('type') || '').toLowerCase();
		if (tag === 'button') return 'button';
		if (tag === 'a' && el.hasAttribute('href')) return 'link';
		if (tag === 'select') return 'combobox';
		if (tag === 'option') return 'option';
		if (tag === 'textarea') return 'textbox';
		if (tag === 'input') {
			if (type === 'submit' || type === 'button') return 'button';
			if (type === 'radio') return 'radio';
			if (type === 'checkbox') return 'checkbox';
			return 'textbox';
		}
		return '';
	};
	const accessibleName = (el) => norm(
		el.getAttribute('aria-label') || el.innerText || el.textContent || el.getAttribute('title') || el.value || ''
	);
	const ownText = (el) => el.innerText || el.textContent || '';

	let els = [];
	if (q.placeholder) {
		els = Array.from(document.querySelectorAll('[placeholder]'))
			.filter((el) => matches(el.getAttribute('placeholder'), q.placeholder, q.exact));
	} else if (q.role) {
		els = Array.from(document.querySelectorAll('body *'))
			.filter((el) => ((el.getAttribute('role') || implicitRole(el)).toLowerCase() === q.role) &&
				(!q.name || matches(accessibleName(el), q.name, q.exact)));
	} else if (q.css) {
		els = Array.from(document.querySelectorAll(q.css));
		if (q.text) els = els.filter((el) => matches(ownText(el), q.text, false));
	} else {
		els = Array.from(document.querySelectorAll('body *'))
			.filter((el) => matches(ownText(el), q.text, q.exact) &&
				!Array.from(el.children).some((c) => matches(ownText(c), q.text, q.exact)));
	}

	return els.map((el, i) => {
		const marker = token + '-' + i;
		el.setAttribute('` + nodeMarkerAttr + `', marker);
		return {
			marker: marker,
			tag: el.tagName.toLowerCase(),
			visible: isVisible(el),
			text: el.innerText || '',
			attrs: {
				'aria-label': el.getAttribute('aria-label') || '',
				'placeholder': el.getAttribute('placeholder') || '',
				'type': el.getAttribute('type') || '',
			},
		};
	});
}`

// fillNodeJS sets a value the way a user edit would, firing input and change.
const fillNodeJS = `(sel, value) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	if (el.scrollIntoViewIfNeeded) {
		el.scrollIntoViewIfNeeded();
	} else if (el.scrollIntoView) {
		el.scrollIntoView({ block: "center", inline: "center" });
	}
	el.focus();
	el.value = value;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// attributeJS reads an attribute not captured by findNodesJS.
const attributeJS = `(sel, name) => {
	const el = document.querySelector(sel);
	return el ? (el.getAttribute(name) || '') : null;
}`

// loadProbeJS reports document readiness and how many resources have loaded.
const loadProbeJS = `(() => ({
	readyState: document.readyState,
	resources: performance.getEntriesByType('resource').length,
}))()`
