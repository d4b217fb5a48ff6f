package browser

// Scripts run through agouti's RunScript. Keys of the arguments map are
// available as variables in the script body.

const jsVisible = `
function visible(el) {
  if (!el) return false;
  var style = window.getComputedStyle(el);
  if (style.visibility === 'hidden' || style.display === 'none') return false;
  return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
}
function query(sel) {
  try { return document.querySelectorAll(sel); } catch (e) { return []; }
}
`

// snapshotScript reports a frameSnapshot. Arguments: username, password, otp.
const snapshotScript = jsVisible + `
function anyVisible(selectors) {
  for (var i = 0; i < selectors.length; i++) {
    var list = query(selectors[i]);
    for (var j = 0; j < list.length; j++) {
      if (visible(list[j])) return true;
    }
  }
  return false;
}
var labels = [];
var nodes = query('label');
for (var k = 0; k < nodes.length; k++) {
  if (visible(nodes[k])) labels.push(nodes[k].textContent || '');
}
return {
  username: anyVisible(username),
  password: anyVisible(password),
  otp: anyVisible(otp),
  labels: labels,
  text: document.body ? document.body.innerText : ''
};
`

// markFieldScript tags the first visible input matching label, then
// selectors, with data-authpilot=mark. Arguments: mark, label, selectors.
const markFieldScript = jsVisible + `
var old = query('[data-authpilot="' + mark + '"]');
for (var i = 0; i < old.length; i++) old[i].removeAttribute('data-authpilot');
if (label) {
  var re = new RegExp(label, 'i');
  var labels = query('label');
  for (var j = 0; j < labels.length; j++) {
    var l = labels[j];
    if (visible(l) && re.test(l.textContent || '') && l.control && visible(l.control)) {
      l.control.setAttribute('data-authpilot', mark);
      return true;
    }
  }
}
for (var s = 0; s < selectors.length; s++) {
  var list = query(selectors[s]);
  for (var n = 0; n < list.length; n++) {
    if (visible(list[n])) {
      list[n].setAttribute('data-authpilot', mark);
      return true;
    }
  }
}
return false;
`

// markButtonScript tags the first visible button whose text matches name,
// falling back to a submit button. Arguments: mark, name.
const markButtonScript = jsVisible + `
var old = query('[data-authpilot="' + mark + '"]');
for (var i = 0; i < old.length; i++) old[i].removeAttribute('data-authpilot');
var re = new RegExp(name, 'i');
var buttons = query('button, input[type="submit"], input[type="button"], [role="button"]');
for (var j = 0; j < buttons.length; j++) {
  var b = buttons[j];
  var text = (b.innerText || b.value || b.getAttribute('aria-label') || '').trim();
  if (visible(b) && re.test(text)) {
    b.setAttribute('data-authpilot', mark);
    return true;
  }
}
var fallback = query('button[type="submit"]');
for (var k = 0; k < fallback.length; k++) {
  if (visible(fallback[k])) {
    fallback[k].setAttribute('data-authpilot', mark);
    return true;
  }
}
return false;
`

const readyStateScript = `return document.readyState;`

// localStorageScript returns the current origin and its local storage.
const localStorageScript = `
var items = {};
try {
  for (var i = 0; i < window.localStorage.length; i++) {
    var k = window.localStorage.key(i);
    items[k] = window.localStorage.getItem(k);
  }
} catch (e) {}
return { origin: window.location.origin, items: items };
`

// restoreLocalStorageScript writes items into the current origin. Arguments: items.
const restoreLocalStorageScript = `
var n = 0;
for (var k in items) {
  if (Object.prototype.hasOwnProperty.call(items, k)) {
    window.localStorage.setItem(k, items[k]);
    n++;
  }
}
return n;
`
